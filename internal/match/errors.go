package match

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed    = errors.New("match session is closed")
	ErrSessionFatal     = errors.New("credential rejected, re-authentication required")
	ErrIdentityUnknown  = errors.New("cannot tell which player you are in this match")
	ErrMatchEnded       = errors.New("match has ended")
	ErrNotYourTurn      = errors.New("it is not your turn")
	ErrBoardsPending    = errors.New("waiting for both boards to be submitted")
	ErrAttackPending    = errors.New("an attack is already in flight")
	ErrOutOfBounds      = errors.New("cell is off the grid")
	ErrAlreadyAttacked  = errors.New("cell has already been attacked")
	ErrBoardSubmitted   = errors.New("board already submitted")
	ErrBoardInFlight    = errors.New("board submission already in flight")
	ErrUnexpectedResult = errors.New("unexpected attack result")
)

// ActionError is a failed user action (fire, submit board). Actions are
// never retried automatically; Message is suitable for showing to the player.
type ActionError struct {
	Op      string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ActionError) Unwrap() error { return e.Err }

func actionError(op string, err error) *ActionError {
	return &ActionError{Op: op, Message: err.Error(), Err: err}
}
