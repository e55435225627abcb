package pipeline

import "fmt"

// SessionStatus is the vocabulary used by persisted session records. It is
// close to, but not identical to, the in-memory Stage.
type SessionStatus string

const (
	StatusIdle       SessionStatus = "idle"
	StatusGenerating SessionStatus = "generating"
	StatusPass1      SessionStatus = "pass1_scoring"
	StatusPass2      SessionStatus = "pass2_validating"
	StatusExecuting  SessionStatus = "executing"
	StatusCompleted  SessionStatus = "completed"
	StatusError      SessionStatus = "error"
	StatusPaused     SessionStatus = "paused"
)

// StageToStatus maps a pipeline stage to its persisted status. The mapping
// flattens aggregating into executing: the external vocabulary has no
// aggregating label, so a session saved mid-aggregation resumes at
// executing. Intentional, not a bug.
func StageToStatus(stage Stage) SessionStatus {
	switch stage {
	case StageIdle:
		return StatusIdle
	case StageGenerating:
		return StatusGenerating
	case StagePass1:
		return StatusPass1
	case StagePass2:
		return StatusPass2
	case StageExecuting, StageAggregating:
		return StatusExecuting
	case StageComplete:
		return StatusCompleted
	case StageError:
		return StatusError
	default:
		return StatusIdle
	}
}

// StatusToStage maps a persisted status back to a stage. paused maps to
// idle; there is no paused stage in the machine. Not a true inverse of
// StageToStatus (see the aggregating note there).
func StatusToStage(status SessionStatus) (Stage, error) {
	switch status {
	case StatusIdle, StatusPaused:
		return StageIdle, nil
	case StatusGenerating:
		return StageGenerating, nil
	case StatusPass1:
		return StagePass1, nil
	case StatusPass2:
		return StagePass2, nil
	case StatusExecuting:
		return StageExecuting, nil
	case StatusCompleted:
		return StageComplete, nil
	case StatusError:
		return StageError, nil
	default:
		return "", fmt.Errorf("unknown session status: %q", status)
	}
}
