// Package intake validates and stages local Word-family documents for a
// conversion session.
//
// Files arrive two ways. Pick mirrors an explicit file or folder selection:
// folders are walked and each file keeps its path relative to the picked
// folder's parent. Drop mirrors a drag-and-drop: directory entries are
// skipped and files keep their base name. Both filter by extension and
// silently discard anything else.
//
// Staging assigns each accepted file an ID built from its name, size,
// modification time, and intake order, and starts it in the pending state.
package intake
