// Package queue holds the work items of a batch run and drives their status
// lifecycle.
//
// A Queue is an ordered, in-memory collection of WorkItems (one per video)
// guarded by a single mutex together with the cooperative stop flag. Every
// status change goes through SetStatus, which enforces the transition table
// in models.go. Readers get copies so callers can render without holding the
// lock. A folder scan replaces the whole collection; that is the only way out
// of the terminal Completed and Error states.
package queue
