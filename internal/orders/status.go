package orders

import (
	"errors"
	"fmt"

	"github.com/dresperanto/studio-flora/pkg/models"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// statusTransitions is the order lifecycle: forward-only through
// pending -> in_progress -> ready -> completed, with cancellation allowed
// from any non-terminal state.
var statusTransitions = map[string][]string{
	models.StatusPending:    {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusReady, models.StatusCancelled},
	models.StatusReady:      {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted:  {},
	models.StatusCancelled:  {},
}

func IsValidStatus(status string) bool {
	_, ok := statusTransitions[status]
	return ok
}

// CanTransition reports whether an order may move from one status to the
// next in a single step.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a status change, returning ErrInvalidTransition when
// the move is not allowed by the lifecycle.
func Transition(from, to string) error {
	if !IsValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
