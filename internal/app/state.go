package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AnMaster15/mashupp/internal/model"
)

// ErrRunInProgress is returned when Run is called while another run is
// active on the same orchestrator
var ErrRunInProgress = errors.New("run already in progress")

// stateMachine tracks one run and rejects any transition that is not a
// forward edge
type stateMachine struct {
	mu      sync.RWMutex
	current model.RunState
	visited map[model.RunState]bool
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: model.RunStateIdle,
		visited: map[model.RunState]bool{model.RunStateIdle: true},
	}
}

// Transition validates and applies a state change
func (m *stateMachine) Transition(to model.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.visited[to] {
		return fmt.Errorf("invalid transition: %s -> %s: state already visited", m.current, to)
	}
	if !isValidTransition(m.current, to) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current, to)
	}

	m.current = to
	m.visited[to] = true
	return nil
}

// Current returns the current state
func (m *stateMachine) Current() model.RunState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// isValidTransition enforces the run state machine edges. Every stage that
// can fail goes through CleaningUp before reaching Aborted.
func isValidTransition(from, to model.RunState) bool {
	switch from {
	case model.RunStateIdle:
		return to == model.RunStateSearching
	case model.RunStateSearching:
		return to == model.RunStateFetching || to == model.RunStateCleaningUp
	case model.RunStateFetching:
		return to == model.RunStateAssembling || to == model.RunStateCleaningUp
	case model.RunStateAssembling:
		return to == model.RunStateNotifying || to == model.RunStateCleaningUp
	case model.RunStateNotifying:
		return to == model.RunStateCleaningUp
	case model.RunStateCleaningUp:
		return to == model.RunStateDone || to == model.RunStateAborted
	default:
		return false
	}
}
