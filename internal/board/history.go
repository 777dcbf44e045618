package board

// History holds the shared undo/redo stacks for one room. Both stacks carry
// full canvas snapshots and enforce a hard depth cap by evicting the oldest
// entry, never by rejecting a push. History is not safe for concurrent use;
// the owning Room serializes access.
type History struct {
	depth     int
	undoStack []string
	redoStack []string
}

// DefaultHistoryDepth bounds the undo and redo stacks when no depth is configured.
const DefaultHistoryDepth = 50

// NewHistory constructs an empty history bounded to the given depth.
func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &History{depth: depth}
}

// RecordEdit registers a committed edit: the superseded snapshot becomes
// undoable and the entire redo branch is discarded.
func (h *History) RecordEdit(superseded string) {
	h.undoStack = push(h.undoStack, superseded, h.depth)
	h.redoStack = nil
}

// Undo pops the most recent undo snapshot, parking the current one on the
// redo stack. The second return is false when there is nothing to undo.
func (h *History) Undo(current string) (string, bool) {
	if len(h.undoStack) == 0 {
		return "", false
	}
	restored := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = push(h.redoStack, current, h.depth)
	return restored, true
}

// Redo is the mirror of Undo over the redo stack.
func (h *History) Redo(current string) (string, bool) {
	if len(h.redoStack) == 0 {
		return "", false
	}
	restored := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = push(h.undoStack, current, h.depth)
	return restored, true
}

// UndoDepth reports how many consecutive undo calls would currently succeed.
func (h *History) UndoDepth() int { return len(h.undoStack) }

// RedoDepth reports how many consecutive redo calls would currently succeed.
func (h *History) RedoDepth() int { return len(h.redoStack) }

func push(stack []string, snapshot string, depth int) []string {
	stack = append(stack, snapshot)
	if len(stack) > depth {
		copy(stack, stack[1:])
		stack = stack[:len(stack)-1]
	}
	return stack
}
