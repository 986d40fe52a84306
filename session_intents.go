package talespin

// Typed helpers over Send, one per outbound intent.

func (s *Session) CreateRoom(name string) {
	s.Send(CreateRoom{Name: name})
}

func (s *Session) JoinRoom(name, roomID string) {
	s.Send(JoinRoom{Name: name, RoomID: roomID})
}

func (s *Session) Ready() {
	s.Send(Ready{})
}

// ChooseActiveCard submits the storyteller's card and its description.
func (s *Session) ChooseActiveCard(card, description string) {
	s.Send(ActivePlayerChooseCard{Card: card, Description: description})
}

// ChooseCard submits a card matching the storyteller's description.
func (s *Session) ChooseCard(card string) {
	s.Send(PlayerChooseCard{Card: card})
}

func (s *Session) Vote(card string) {
	s.Send(Vote{Card: card})
}
