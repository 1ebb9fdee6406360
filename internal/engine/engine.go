// Package engine defines the boundary between termbridge and the logic engine
// it embeds. The engine itself (clause storage, unification, resolution) lives
// behind the Engine interface; this package only fixes the shape of what
// crosses the boundary: terms, answers and the answer stream.
package engine

// Engine is the narrow interface a resolution engine exposes to a session.
//
// Implementations are not required to be safe for concurrent use. A session
// owns its engine exclusively and drives it from one goroutine at a time.
type Engine interface {
	// LoadModule makes the clauses in source available under module name.
	// Loading a module with a name already in use replaces it. Engines that
	// only report load problems when a query runs return nil.
	LoadModule(name, source string) error

	// RunQuery starts resolution of source and returns its answer stream.
	// No resolution work may happen before the first call to Stream.Next.
	RunQuery(source string) Stream
}

// Stream is a forward-only sequence of answers for one query. Every call to
// RunQuery yields a fresh Stream; a Stream cannot be rewound.
type Stream interface {
	// Next advances resolution by exactly one step. The boolean is false once
	// the stream has nothing more to produce, in which case the Answer is nil.
	// Next may block for as long as the step takes.
	Next() (Answer, bool)
}

// Asserter is implemented by engines that accept facts built on the host side.
type Asserter interface {
	// Assert adds each fact (a Compound or Atom) to the engine's database.
	Assert(facts ...Term) error
}
