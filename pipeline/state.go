// Package pipeline implements the staged query pipeline: an explicit state
// machine over generation, two scoring passes, execution, and aggregation,
// plus the orchestrator that drives it end to end across rounds.
package pipeline

import (
	"fmt"
	"slices"
	"strings"
)

// Stage is a pipeline stage.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageGenerating  Stage = "generating"
	StagePass1       Stage = "pass1"
	StagePass2       Stage = "pass2"
	StageExecuting   Stage = "executing"
	StageAggregating Stage = "aggregating"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// transitions is the directed edge set of the stage graph.
var transitions = map[Stage][]Stage{
	StageIdle:        {StageGenerating},
	StageGenerating:  {StagePass1, StageError},
	StagePass1:       {StagePass2, StageError},
	StagePass2:       {StageExecuting, StageError},
	StageExecuting:   {StageAggregating, StageError},
	StageAggregating: {StageComplete, StageGenerating, StageError},
	StageComplete:    {StageGenerating, StageIdle},
	StageError:       {StageIdle, StageGenerating},
}

// State is the mutable record of one pipeline session. It is owned by the
// Orchestrator; everything else sees copies.
type State struct {
	Stage Stage  `json:"stage"`
	Round int    `json:"round"`
	Error string `json:"error,omitempty"`

	QueriesGenerated []string `json:"queriesGenerated"`
	Pass1Queue       []string `json:"pass1Queue"`
	Pass1Completed   []string `json:"pass1Completed"`
	Pass2Queue       []string `json:"pass2Queue"`
	Pass2Completed   []string `json:"pass2Completed"`
	ExecuteQueue     []string `json:"executeQueue"`
	ExecuteCompleted []string `json:"executeCompleted"`
}

// NewState creates a fresh state: idle, round 0, all queues empty.
func NewState() *State {
	return &State{Stage: StageIdle}
}

// InvalidTransitionError reports an attempt to take an edge that is not in
// the stage graph. These are programming errors, never swallowed.
type InvalidTransitionError struct {
	From  Stage
	To    Stage
	Valid []Stage
}

func (e *InvalidTransitionError) Error() string {
	valid := make([]string, len(e.Valid))
	for i, s := range e.Valid {
		valid[i] = string(s)
	}
	return fmt.Sprintf("invalid transition %s -> %s (valid targets from %s: %s)",
		e.From, e.To, e.From, strings.Join(valid, ", "))
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to Stage) bool {
	return slices.Contains(transitions[from], to)
}

// Transition moves the state to the given stage, enforcing the edge set.
// Leaving the error stage clears the stored error. Entering generating from
// aggregating or complete starts a fresh round: the round counter increments
// and every queue list is cleared. idle -> generating does NOT increment the
// round; round numbering only advances between rounds.
func (s *State) Transition(to Stage) error {
	return s.transition(to, "")
}

// Fail transitions to the error stage, recording the message.
func (s *State) Fail(message string) error {
	return s.transition(StageError, message)
}

func (s *State) transition(to Stage, errMessage string) error {
	from := s.Stage
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to, Valid: transitions[from]}
	}

	if from == StageError && to != StageError {
		s.Error = ""
	}

	if to == StageGenerating && (from == StageAggregating || from == StageComplete) {
		s.Round++
		s.clearQueues()
	}

	s.Stage = to
	if to == StageError {
		s.Error = errMessage
	}
	return nil
}

func (s *State) clearQueues() {
	s.QueriesGenerated = nil
	s.Pass1Queue = nil
	s.Pass1Completed = nil
	s.Pass2Queue = nil
	s.Pass2Completed = nil
	s.ExecuteQueue = nil
	s.ExecuteCompleted = nil
}

// reset returns the state to idle outside the edge set. This is the stop
// path: the operator is halting the session, not walking the graph. Round is
// preserved unless clearRound is set.
func (s *State) reset(clearRound bool) {
	s.Stage = StageIdle
	s.Error = ""
	if clearRound {
		s.Round = 0
		s.clearQueues()
	}
}

// NextStage derives the natural next stage from queue occupancy. The second
// return is false when no automatic advance is possible: a terminal stage,
// or a queue that still has pending work.
func NextStage(s *State) (Stage, bool) {
	switch s.Stage {
	case StageGenerating:
		if len(s.QueriesGenerated) > 0 {
			return StagePass1, true
		}
	case StagePass1:
		if len(s.Pass1Queue) == 0 {
			return StagePass2, true
		}
	case StagePass2:
		if len(s.Pass2Queue) == 0 {
			return StageExecuting, true
		}
	case StageExecuting:
		if len(s.ExecuteQueue) == 0 {
			return StageAggregating, true
		}
	case StageAggregating:
		return StageComplete, true
	}
	return "", false
}

// IsTerminalStage reports whether the stage ends automatic progression.
func IsTerminalStage(stage Stage) bool {
	return stage == StageIdle || stage == StageComplete || stage == StageError
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.QueriesGenerated = slices.Clone(s.QueriesGenerated)
	c.Pass1Queue = slices.Clone(s.Pass1Queue)
	c.Pass1Completed = slices.Clone(s.Pass1Completed)
	c.Pass2Queue = slices.Clone(s.Pass2Queue)
	c.Pass2Completed = slices.Clone(s.Pass2Completed)
	c.ExecuteQueue = slices.Clone(s.ExecuteQueue)
	c.ExecuteCompleted = slices.Clone(s.ExecuteCompleted)
	return &c
}
