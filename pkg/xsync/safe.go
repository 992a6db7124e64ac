package xsync

import (
	"fmt"
	"log/slog"
)

// Go runs fn in a new goroutine, recovering any panic and routing it to
// the optional error handlers (or to slog if none are given).
func Go(fn func(), onError ...func(error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic recovered: %v", r)
				if len(onError) == 0 {
					slog.Error("recovered panic in goroutine", slog.String("err", err.Error()))
					return
				}
				for _, h := range onError {
					h(err)
				}
			}
		}()
		fn()
	}()
}
