// Package history provides a linear undo/redo container over
// immutable snapshots of any value.
package history

import "reflect"

// actionKind enumerates the operations the reducer understands.
type actionKind int

const (
	actionSet actionKind = iota
	actionUndo
	actionRedo
	actionReset
)

type action[T any] struct {
	kind  actionKind
	value T
}

// state is the reducer's value: a snapshot sequence plus a cursor that
// is always a valid index into it.
type state[T any] struct {
	snapshots []T
	cursor    int
}

// Store keeps an ordered sequence of snapshots with a movable cursor.
// All mutation goes through a pure reducer, so the branch-discard rule
// (writing after undo drops the redo tail) lives in exactly one place.
type Store[T any] struct {
	st    state[T]
	equal func(a, b T) bool
}

// New creates a store seeded with a single initial snapshot.
func New[T any](initial T) *Store[T] {
	return &Store[T]{
		st:    state[T]{snapshots: []T{initial}},
		equal: func(a, b T) bool { return reflect.DeepEqual(a, b) },
	}
}

// NewWithEqual creates a store using a custom deep-equality function.
func NewWithEqual[T any](initial T, equal func(a, b T) bool) *Store[T] {
	s := New(initial)
	s.equal = equal
	return s
}

// reduce applies an action to a state and returns the next state.
func reduce[T any](st state[T], act action[T], equal func(a, b T) bool) state[T] {
	switch act.kind {
	case actionSet:
		if equal(st.snapshots[st.cursor], act.value) {
			return st
		}
		next := append([]T(nil), st.snapshots[:st.cursor+1]...)
		next = append(next, act.value)
		return state[T]{snapshots: next, cursor: len(next) - 1}
	case actionUndo:
		if st.cursor > 0 {
			st.cursor--
		}
		return st
	case actionRedo:
		if st.cursor < len(st.snapshots)-1 {
			st.cursor++
		}
		return st
	case actionReset:
		return state[T]{snapshots: []T{act.value}}
	default:
		return st
	}
}

// Current returns the snapshot at the cursor.
func (s *Store[T]) Current() T {
	return s.st.snapshots[s.st.cursor]
}

// Set appends a snapshot after the cursor, discarding any redo tail.
// Setting a value deep-equal to the current snapshot is a no-op.
func (s *Store[T]) Set(v T) {
	s.st = reduce(s.st, action[T]{kind: actionSet, value: v}, s.equal)
}

// Update computes the next snapshot from the current one and sets it.
func (s *Store[T]) Update(fn func(T) T) {
	s.Set(fn(s.Current()))
}

// Undo moves the cursor back one snapshot. At the oldest snapshot it
// is a no-op, not an error.
func (s *Store[T]) Undo() {
	s.st = reduce(s.st, action[T]{kind: actionUndo}, s.equal)
}

// Redo moves the cursor forward one snapshot, clamped at the newest.
func (s *Store[T]) Redo() {
	s.st = reduce(s.st, action[T]{kind: actionRedo}, s.equal)
}

// Reset replaces the entire history with a single snapshot. Used when
// a new document supersedes the editing history wholesale.
func (s *Store[T]) Reset(v T) {
	s.st = reduce(s.st, action[T]{kind: actionReset, value: v}, s.equal)
}

// CanUndo reports whether the cursor can move back.
func (s *Store[T]) CanUndo() bool { return s.st.cursor > 0 }

// CanRedo reports whether the cursor can move forward.
func (s *Store[T]) CanRedo() bool { return s.st.cursor < len(s.st.snapshots)-1 }

// Len returns the number of snapshots held.
func (s *Store[T]) Len() int { return len(s.st.snapshots) }
