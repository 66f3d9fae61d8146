// Package session drives one conversion session from staged files to a
// downloaded result.
//
// State changes go through Transition, a pure function from (State, Event)
// to the next State plus the Effects the controller must execute: upload,
// start, begin or stop polling, and fetch the result. The Controller owns
// the single State, serializes transitions under its mutex, performs the
// network calls outside the lock, and feeds their outcomes back as events.
// A generation counter discards events from a task that was reset.
//
// Phases advance idle → uploading → converting → finalizing → complete;
// failed is reachable from every active phase. Complete and failed are
// terminal until Reset.
package session
