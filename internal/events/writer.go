package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// WriteSSE drains a Consumer to an http.ResponseWriter as Server-Sent
// Events until the context is cancelled or the consumer's channel is
// closed. This is the optional external surface the bus can be wired
// into; it sits outside the core contract (spec §1 scope) but is kept
// because the teacher's sse package otherwise has nothing in this
// domain to serve (see sse.server.WithSSE, which this mirrors).
func WriteSSE(ctx context.Context, w http.ResponseWriter, c *Consumer) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("events: response writer does not support flushing")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-c.Events():
			if !ok {
				return nil
			}
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("events: marshal event: %w", err)
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}
