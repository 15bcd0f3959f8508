package notifier

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// WriterSender prints notifications, one block per message
type WriterSender struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSender creates a sender writing to w
func NewWriterSender(w io.Writer) *WriterSender {
	return &WriterSender{w: w}
}

// Send implements Sender
func (s *WriterSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s\n%s\n\n", msg.Title, msg.Body)
	return err
}
