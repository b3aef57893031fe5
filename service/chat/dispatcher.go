package chat

// Handler processes one inbound frame type.
type Handler interface {
	Type() string
	Handle(ctx *Context, f *Frame, c *Client) error
}

// Context carries the server into handlers.
type Context struct {
	S *Server
}

// Dispatcher routes inbound frames to their handler by type.
type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Get(frameType string) (Handler, bool) {
	h, ok := d.handlers[frameType]
	return h, ok
}
