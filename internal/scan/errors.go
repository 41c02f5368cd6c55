package scan

import "errors"

// Stage names the pipeline step a scan failed in.
type Stage string

const (
	StagePrecondition Stage = "precondition"
	StageExtraction   Stage = "extraction"
	StageTransport    Stage = "transport"
	StageParsing      Stage = "parsing"
)

// StageError wraps a failure with the stage it happened in. The wrapped error
// keeps its concrete type for errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// PreconditionError reports a missing prerequisite such as the credential.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

// ErrNoAPIKey is the reason used when no model credential is configured.
var ErrNoAPIKey = &PreconditionError{Reason: "API key not configured"}

// StageOf returns the stage recorded in err, or "" when err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
