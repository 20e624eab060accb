package sim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/portsim/internal/system"
)

var (
	// ErrConfig is shared with package system.
	ErrConfig = system.ErrConfig

	// ErrDependency is shared with the block compiler.
	ErrDependency = system.ErrDependency

	// ErrUnstable indicates a variable became NaN or infinite.
	ErrUnstable = errors.New("sim: simulation unstable (state diverged)")
)

// UnstableError names the variables that diverged and when.
type UnstableError struct {
	Time      float64
	Variables []string
}

func (e *UnstableError) Error() string {
	return fmt.Sprintf("%v at t=%.4f: %s", ErrUnstable, e.Time, strings.Join(e.Variables, ", "))
}

func (e *UnstableError) Unwrap() error { return ErrUnstable }
