package query

import (
	"errors"
	"fmt"

	"termbridge/internal/value"
)

// Sentinels matched by errors.Is against an *EngineError of the same kind.
var (
	ErrException = errors.New("prolog exception")
	ErrErrorTerm = errors.New("prolog error term")
)

// ErrorKind separates raised exceptions from error terms.
type ErrorKind int

const (
	KindException ErrorKind = iota
	KindErrorTerm
)

func (k ErrorKind) String() string {
	if k == KindErrorTerm {
		return "error_term"
	}
	return "exception"
}

// EngineError reports that resolution of a query produced an exception or
// an error term. It ends the query; the session stays usable.
type EngineError struct {
	Kind  ErrorKind
	Query string
	// Term is the converted raw term the engine produced.
	Term value.Value
	// Text is the display rendering of Term.
	Text string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.sentinel(), e.Text)
}

func (e *EngineError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *EngineError) sentinel() error {
	if e.Kind == KindErrorTerm {
		return ErrErrorTerm
	}
	return ErrException
}
