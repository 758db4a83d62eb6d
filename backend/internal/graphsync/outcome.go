package graphsync

import (
	"fmt"

	"socialblog/backend/internal/graph"
	apperrors "socialblog/backend/pkg/errors"
)

// Status is the result class of one replication call
type Status int

const (
	// StatusOK means the graph now reflects the relational change
	StatusOK Status = iota
	// StatusSkipped means a node the change depends on is absent from the graph
	StatusSkipped
	// StatusFailed means the backend rejected or could not serve the call
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is returned by every sync call. Replication is at-most-once, so a
// Failed outcome is only recorded by the caller, never retried.
type Outcome struct {
	Status Status
	Reason string
	Err    error
}

func OK() Outcome {
	return Outcome{Status: StatusOK}
}

func Skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

// Failed wraps err as a sync error; the graph error stays reachable through Unwrap
func Failed(op string, err error) Outcome {
	return Outcome{
		Status: StatusFailed,
		Reason: err.Error(),
		Err:    apperrors.NewBaseError(apperrors.ErrorTypeSync, op+" not replicated", err),
	}
}

// IsOK reports whether the change reached the graph
func (o Outcome) IsOK() bool {
	return o.Status == StatusOK
}

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Status.String()
	}
	return o.Status.String() + ": " + o.Reason
}

// outcomeOf maps a store error onto the outcome taxonomy: NotFound skips,
// everything else fails.
func outcomeOf(op string, err error) Outcome {
	switch {
	case err == nil:
		return OK()
	case graph.IsNotFound(err):
		return Skipped(err.Error())
	default:
		return Failed(op, err)
	}
}
