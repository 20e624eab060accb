package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/portsim/internal/block"
)

var (
	// ErrConfig indicates a System or Simulation used out of order or with
	// invalid settings.
	ErrConfig = errors.New("system: configuration error")

	// ErrCyclicDependency indicates parameters that depend on each other.
	ErrCyclicDependency = errors.New("system: cyclic parameter dependency")

	// ErrDependency is the undefined-symbol kind shared with the block
	// compiler.
	ErrDependency = block.ErrDependency

	// ErrDuplicate is the duplicate-definition kind shared with the block
	// compiler.
	ErrDuplicate = block.ErrDuplicate
)

// CyclicDependencyError lists one dependency cycle, first parameter repeated
// at the end.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCyclicDependency, strings.Join(e.Path, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
