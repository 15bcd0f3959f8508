// Package alertstore holds the in-memory alert collection shown on the
// dashboard: listing, filtering, acknowledgement and display formatting.
package alertstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pondwatch/pondwatch/internal/types"
)

var (
	// ErrNotFound is returned when no alert has the requested id
	ErrNotFound = errors.New("alert not found")
	// ErrDuplicateID is returned when adding an alert whose id is already stored
	ErrDuplicateID = errors.New("duplicate alert id")
	// ErrInvalidAlert is returned for alerts missing an id or with an unknown severity
	ErrInvalidAlert = errors.New("invalid alert")
)

// Store keeps alerts most-recent-first. Alerts are never removed. Alerts are
// copied on the way in and out, so callers never share label maps with the
// store.
type Store struct {
	mu     sync.RWMutex
	alerts []types.Alert
}

// New creates a store holding alerts in the given order
func New(alerts ...types.Alert) *Store {
	s := &Store{alerts: make([]types.Alert, 0, len(alerts))}
	for _, a := range alerts {
		s.alerts = append(s.alerts, a.Clone())
	}
	return s
}

// List returns a copy of every alert
func (s *Store) List() []types.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a.Clone())
	}
	return out
}

// Len returns the number of stored alerts
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// Add stores a new alert in front of the existing ones.
func (s *Store) Add(a types.Alert) error {
	if a.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidAlert)
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, a.Severity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(a.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}
	s.alerts = append(s.alerts, types.Alert{})
	copy(s.alerts[1:], s.alerts)
	s.alerts[0] = a.Clone()
	return nil
}

// Get returns the alert with the given id
func (s *Store) Get(id string) (types.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return types.Alert{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.alerts[i].Clone(), nil
}

// Acknowledge marks an alert as seen. Acknowledging twice is not an error;
// an unknown id returns ErrNotFound and leaves the store untouched.
func (s *Store) Acknowledge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.alerts[i].Acknowledged = true
	return nil
}

// Counts summarises alerts by acknowledgement state and severity
type Counts struct {
	Active       int                    `json:"active"`
	Acknowledged int                    `json:"acknowledged"`
	ActiveBy     map[types.Severity]int `json:"active_by_severity"`
}

// Counts returns the current totals
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Counts{ActiveBy: make(map[types.Severity]int, len(types.Severities))}
	for _, sev := range types.Severities {
		c.ActiveBy[sev] = 0
	}
	for _, a := range s.alerts {
		if a.Acknowledged {
			c.Acknowledged++
			continue
		}
		c.Active++
		c.ActiveBy[a.Severity]++
	}
	return c
}

// Recent returns every active alert plus at most n acknowledged ones, each in
// store order.
func (s *Store) Recent(n int) (active, acknowledged []types.Alert) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active = []types.Alert{}
	acknowledged = []types.Alert{}
	for _, a := range s.alerts {
		switch {
		case !a.Acknowledged:
			active = append(active, a.Clone())
		case len(acknowledged) < n:
			acknowledged = append(acknowledged, a.Clone())
		}
	}
	return active, acknowledged
}

// indexOf must be called with the lock held
func (s *Store) indexOf(id string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return i
		}
	}
	return -1
}
