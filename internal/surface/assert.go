package surface

import (
	"fmt"
	"log/slog"
)

// Invariants reports violated programmer invariants. Violations are logged
// at error level; with Fatal set they panic instead.
type Invariants struct {
	Logger *slog.Logger
	Fatal  bool
}

// Check reports msg when cond is false and returns cond.
func (iv Invariants) Check(cond bool, msg string, args ...any) bool {
	if cond {
		return true
	}
	if iv.Fatal {
		panic(fmt.Sprintf("invariant violated: %s %v", msg, args))
	}
	logger := iv.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("invariant violated: "+msg, args...)
	return false
}
