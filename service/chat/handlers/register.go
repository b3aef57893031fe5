package handlers

import (
	"chaters/service/chat"
)

// RegisterAll wires every inbound frame handler onto the server's
// dispatcher.
func RegisterAll(s *chat.Server) {
	s.Disp().Register(NewAuthHandler())
	s.Disp().Register(NewJoinHandler())
	s.Disp().Register(NewMessageHandler())
	s.Disp().Register(NewTypingHandler())
	s.Disp().Register(NewReadHandler())
	s.Disp().Register(NewDeleteHandler())
}
