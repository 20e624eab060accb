package block

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds raised while building and compiling blocks.
var (
	// ErrWiring indicates a bad wire endpoint, an unresolved required input
	// or an otherwise dangling port.
	ErrWiring = errors.New("block: wiring error")

	// ErrDependency indicates a formula referencing undefined symbols.
	ErrDependency = errors.New("block: undefined symbol")

	// ErrDuplicate indicates two definitions for one name in one block.
	ErrDuplicate = errors.New("block: duplicate definition")

	// ErrInvalidName indicates a block or port name that is not a plain identifier.
	ErrInvalidName = errors.New("block: invalid name")

	// ErrInvalidData indicates interchange data that cannot describe a block.
	ErrInvalidData = errors.New("block: invalid data")
)

// WiringError names the block and every offending port or symbol.
type WiringError struct {
	Block  string
	Reason string
	Names  []string
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("%v in %s: %s: %s", ErrWiring, e.Block, e.Reason, strings.Join(e.Names, ", "))
}

func (e *WiringError) Unwrap() error { return ErrWiring }

// DependencyError names every undefined symbol referenced inside a block.
type DependencyError struct {
	Block   string
	Reason  string
	Symbols []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%v in %s: %s: %s", ErrDependency, e.Block, e.Reason, strings.Join(e.Symbols, ", "))
}

func (e *DependencyError) Unwrap() error { return ErrDependency }

// DuplicateError names the repeated definition.
type DuplicateError struct {
	Block string
	What  string
	Name  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%v in %s: %s %s", ErrDuplicate, e.Block, e.What, e.Name)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

func wiringError(block, reason string, names ...string) error {
	return &WiringError{Block: block, Reason: reason, Names: names}
}

func dependencyError(block, reason string, symbols []string) error {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return &DependencyError{Block: block, Reason: reason, Symbols: sorted}
}

func duplicateError(block, what, name string) error {
	return &DuplicateError{Block: block, What: what, Name: name}
}
