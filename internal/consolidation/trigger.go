package consolidation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"timeclock/internal/queue"
)

// MessageType identifies consolidation requests on the queue.
const MessageType = "consolidate"

const dayFormat = "2006-01-02"

// Trigger publishes consolidation requests. It satisfies the signing
// service's ConsolidationRequester.
type Trigger struct {
	q queue.Queue
}

// NewTrigger wraps a queue backend.
func NewTrigger(q queue.Queue) *Trigger {
	return &Trigger{q: q}
}

// Request enqueues a recomputation of the employee's day.
func (t *Trigger) Request(ctx context.Context, employeeID string, day time.Time) error {
	return t.q.Publish(ctx, queue.Message{Type: MessageType, Body: []byte(EncodeRequest(employeeID, day))})
}

// EncodeRequest serializes an (employee, day) pair for the queue.
func EncodeRequest(employeeID string, day time.Time) string {
	return employeeID + "|" + day.Format(dayFormat)
}

// DecodeRequest parses a queue message body back into an (employee, day) pair.
func DecodeRequest(body string) (string, time.Time, error) {
	idx := strings.LastIndex(body, "|")
	if idx < 0 {
		return "", time.Time{}, fmt.Errorf("malformed consolidation request %q", body)
	}
	day, err := time.ParseInLocation(dayFormat, body[idx+1:], time.Local)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed consolidation day in %q: %w", body, err)
	}
	return body[:idx], day, nil
}
