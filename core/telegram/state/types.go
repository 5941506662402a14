package state

import tele "gopkg.in/telebot.v4"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state for a user.
type Session struct {
	State State
}

// Manager orchestrates user sessions and FSM state transitions.
type Manager interface {
	Clear(userID int64)
	Count() int

	// Dialog state
	SetState(userID int64, st State)
	GetState(userID int64) State
	HasState(userID int64) bool
	ClearState(userID int64)

	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}
