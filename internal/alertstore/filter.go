package alertstore

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/types"
)

// Status selects alerts by acknowledgement state
type Status string

const (
	StatusAll          Status = "all"
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
)

// SeverityAll disables severity filtering
const SeverityAll types.Severity = "all"

// Criteria are combined with a logical AND. Zero values match everything.
type Criteria struct {
	Query    string
	Severity types.Severity
	Status   Status
	Language i18n.Language
}

// Filter returns the alerts matching every criterion, in store order.
func (s *Store) Filter(c Criteria) []types.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if c.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// Matches reports whether a satisfies all of the criteria
func (c Criteria) Matches(a types.Alert) bool {
	return c.matchesQuery(a) && c.matchesSeverity(a) && c.matchesStatus(a)
}

func (c Criteria) matchesQuery(a types.Alert) bool {
	q := strings.TrimSpace(c.Query)
	if q == "" {
		return true
	}
	fold := cases.Fold()
	needle := fold.String(q)
	return strings.Contains(fold.String(a.Pond.Text(c.Language)), needle) ||
		strings.Contains(fold.String(a.Parameter.Text(c.Language)), needle)
}

func (c Criteria) matchesSeverity(a types.Alert) bool {
	if c.Severity == "" || c.Severity == SeverityAll {
		return true
	}
	return a.Severity == c.Severity
}

func (c Criteria) matchesStatus(a types.Alert) bool {
	switch c.Status {
	case StatusActive:
		return !a.Acknowledged
	case StatusAcknowledged:
		return a.Acknowledged
	default:
		return true
	}
}

// ParseSeverity validates a severity filter value. Empty means all.
func ParseSeverity(s string) (types.Severity, error) {
	sev := types.Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev == "" || sev == SeverityAll {
		return SeverityAll, nil
	}
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// ParseStatus validates a status filter value. Empty means all.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive, StatusAcknowledged:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}
