package engine

// Answer is the outcome of advancing resolution by one step: True, False,
// Bindings, Exception or ErrorTerm.
type Answer interface {
	isAnswer()
}

// True reports success without variable bindings.
type True struct{}

// False reports that the query has no (more) solutions.
type False struct{}

// Bindings reports success with at least one bound variable.
type Bindings struct {
	// Vars maps each query variable name to the term it was resolved to.
	Vars map[string]Term
	// Residual holds goals the engine could not discharge, such as pending
	// constraints. Most answers have none.
	Residual []Term
}

// Exception reports that resolution raised a non-logical exception.
type Exception struct {
	Term Term
}

// ErrorTerm reports a logical error produced by resolution that the engine
// distinguishes from a raised exception.
type ErrorTerm struct {
	Term Term
}

func (True) isAnswer()      {}
func (False) isAnswer()     {}
func (Bindings) isAnswer()  {}
func (Exception) isAnswer() {}
func (ErrorTerm) isAnswer() {}
