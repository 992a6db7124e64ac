package model

import "fmt"

// errf is a tiny formatting helper so invariant-check call sites in
// this package stay one-liners, mirroring the teacher's small
// sentinel-error tables (e.g. ai/core/chat/client/advisor/errors.go)
// but for dynamically-parameterized contract-violation messages.
func errf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
