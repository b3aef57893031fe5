package chat

// Phase is the per-connection protocol state. It only moves forward:
// unauthenticated -> authenticated -> joined. Disconnect is handled by
// the transport, not as a phase.
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseAuthenticated
	PhaseJoined
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseJoined:
		return "joined"
	default:
		return "unknown"
	}
}

// Allowed reports whether a frame of the given type may be processed in
// phase p. Pure, so the protocol gating is testable without a transport.
// Frame types it does not know about are rejected here and ignored by
// the read loop.
func Allowed(p Phase, frameType string) bool {
	switch frameType {
	case FrameAuth:
		// re-auth is permitted in every phase; a failed attempt leaves
		// the current phase untouched
		return true
	case FrameJoin:
		return p == PhaseAuthenticated || p == PhaseJoined
	case FrameMessage, FrameTyping, FrameRead, FrameDelete:
		return p == PhaseJoined
	default:
		return false
	}
}
