package webui

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// LogEntry is one captured zerolog line
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
	Raw       string    `json:"raw"`
}

// LogBuffer keeps the most recent log lines for the settings page
type LogBuffer struct {
	entries []LogEntry
	size    int
	head    int
	count   int
	now     func() time.Time
	mu      sync.RWMutex
}

// NewLogBuffer creates a log buffer holding at most size entries
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 1
	}
	return &LogBuffer{
		entries: make([]LogEntry, size),
		size:    size,
		now:     time.Now,
	}
}

// Write implements io.Writer. Each call is expected to carry one JSON line.
func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	entry := parseEntry(strings.TrimRight(string(p), "\n"))

	lb.mu.Lock()
	defer lb.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = lb.now()
	}
	lb.entries[lb.head] = entry
	lb.head = (lb.head + 1) % lb.size
	if lb.count < lb.size {
		lb.count++
	}
	return len(p), nil
}

// Entries returns all entries oldest first
func (lb *LogBuffer) Entries() []LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	result := make([]LogEntry, lb.count)
	start := 0
	if lb.count == lb.size {
		start = lb.head
	}
	for i := 0; i < lb.count; i++ {
		result[i] = lb.entries[(start+i)%lb.size]
	}
	return result
}

// Recent returns the newest n entries, oldest first
func (lb *LogBuffer) Recent(n int) []LogEntry {
	entries := lb.Entries()
	if n < 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

// Clear drops all entries
func (lb *LogBuffer) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.head = 0
	lb.count = 0
}

type zerologLine struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Component string `json:"component"`
	Time      any    `json:"time"`
}

// parseEntry reads the fields written by zerolog. Lines that are not JSON are
// kept verbatim at info level.
func parseEntry(raw string) LogEntry {
	entry := LogEntry{Level: "info", Message: raw, Raw: raw}

	var line zerologLine
	if err := json.Unmarshal([]byte(raw), &line); err != nil {
		return entry
	}
	if line.Level != "" {
		entry.Level = line.Level
	}
	if line.Message != "" {
		entry.Message = line.Message
	}
	entry.Component = line.Component

	switch t := line.Time.(type) {
	case float64:
		entry.Timestamp = time.Unix(int64(t), 0)
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			entry.Timestamp = ts
		}
	}
	return entry
}
