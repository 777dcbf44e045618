package board

// Outbound event names shared between the room fan-out and the gateway.
const (
	EventRoomJoined     = "room-joined"
	EventJoinError      = "join-error"
	EventLeaveAck       = "leave-ack"
	EventUserList       = "user-list"
	EventStroke         = "stroke"
	EventDraw           = "draw"
	EventClearCanvas    = "clear-canvas"
	EventCanvasData     = "canvas-data"
	EventUserTyping     = "user-typing"
	EventUserStopTyping = "user-stop-typing"
	EventReceiveMessage = "receive-message"
)

// Event is one outbound frame queued for a participant connection.
type Event struct {
	Name string
	Data any
}

// Sender delivers outbound events to one participant connection. Delivery is
// fire-and-forget; a slow or gone connection must not block the room.
type Sender interface {
	Deliver(event Event)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(event Event)

// Deliver implements Sender.
func (f SenderFunc) Deliver(event Event) { f(event) }
