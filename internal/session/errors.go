package session

import (
	"errors"
	"fmt"
)

// ErrAssertUnsupported is returned by Assert when the engine does not accept
// host-built facts.
var ErrAssertUnsupported = errors.New("engine does not support assert")

// IOError reports that a module source file could not be read. It is never
// produced for problems with the module's contents.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read module %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// LoadError reports that the engine rejected a module's source text.
type LoadError struct {
	Module string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load module %s: %v", e.Module, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
