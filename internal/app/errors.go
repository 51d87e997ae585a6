package app

import (
	"errors"

	"blackjack/internal/store"
)

var (
	ErrSessionNotFound = store.ErrNotFound
	ErrStoreFull       = store.ErrFull
	ErrSessionFinished = errors.New("session already finished")
	ErrDeckExhausted   = errors.New("deck exhausted")
	ErrLimitExceeded   = errors.New("session action limit reached")
	ErrInvalidAction   = errors.New("invalid action")
	ErrUnknownVariant  = errors.New("unknown session variant")
)

// Condition codes reported to transports.
const (
	ConditionOK              = "ok"
	ConditionSessionNotFound = "session_not_found"
	ConditionSessionFinished = "session_finished"
	ConditionDeckExhausted   = "deck_exhausted"
	ConditionLimitExceeded   = "limit_exceeded"
	ConditionInvalidAction   = "invalid_action"
	ConditionUnknownVariant  = "unknown_variant"
	ConditionStoreFull       = "store_full"
	ConditionInternal        = "internal"
)

// ConditionOf maps an error returned by Service to a stable condition code.
func ConditionOf(err error) string {
	switch {
	case err == nil:
		return ConditionOK
	case errors.Is(err, ErrSessionNotFound):
		return ConditionSessionNotFound
	case errors.Is(err, ErrSessionFinished):
		return ConditionSessionFinished
	case errors.Is(err, ErrDeckExhausted):
		return ConditionDeckExhausted
	case errors.Is(err, ErrLimitExceeded):
		return ConditionLimitExceeded
	case errors.Is(err, ErrInvalidAction):
		return ConditionInvalidAction
	case errors.Is(err, ErrUnknownVariant):
		return ConditionUnknownVariant
	case errors.Is(err, ErrStoreFull):
		return ConditionStoreFull
	default:
		return ConditionInternal
	}
}
