package board

// ChatLog is a bounded FIFO of chat messages. When the cap is reached the
// oldest entry is evicted; appends never fail. Not safe for concurrent use;
// the owning Room serializes access.
type ChatLog struct {
	limit    int
	messages []ChatMessage
}

// DefaultChatLogLimit bounds the retained chat log when no limit is configured.
const DefaultChatLogLimit = 100

// NewChatLog constructs an empty log bounded to the given limit.
func NewChatLog(limit int) *ChatLog {
	if limit <= 0 {
		limit = DefaultChatLogLimit
	}
	return &ChatLog{limit: limit}
}

// Append retains the message, evicting the oldest entry when the log is full.
func (l *ChatLog) Append(message ChatMessage) {
	l.messages = append(l.messages, message)
	if len(l.messages) > l.limit {
		copy(l.messages, l.messages[1:])
		l.messages = l.messages[:len(l.messages)-1]
	}
}

// Messages returns a copy of the retained log in arrival order.
func (l *ChatLog) Messages() []ChatMessage {
	out := make([]ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}
