package app

import (
	"fmt"
	"strings"
)

// Action identifies a player request against a session.
type Action string

const (
	ActionStart Action = "start"
	ActionHit   Action = "hit"
	ActionStand Action = "stand"
	ActionEnd   Action = "end"
)

// ParseAction normalizes an action name. Only actions valid on an existing
// session are accepted; "start" goes through Service.Start.
func ParseAction(name string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(name))); a {
	case ActionHit, ActionStand, ActionEnd:
		return a, nil
	case ActionStart:
		return "", fmt.Errorf("%w: start creates a new session", ErrInvalidAction)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, name)
	}
}
