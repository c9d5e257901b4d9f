package coordinator

import "errors"

var (
	ErrNoCreator        = errors.New("coordinator: no non-computer participant available to create the game")
	ErrAlreadyLaunched  = errors.New("coordinator: match already launched")
	ErrNotLaunched      = errors.New("coordinator: match has not been launched")
	ErrTickDeadline     = errors.New("coordinator: participant exceeded tick deadline")
	ErrAgentCountMismatch = errors.New("coordinator: agents slice must have one entry per participant (nil allowed)")
)
