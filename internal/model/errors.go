package model

import (
	"fmt"
	"strings"
)

// User-facing fallbacks when the service gives no text of its own.
const (
	MsgSubmissionFailed = "Failed to start the optimization job."
	MsgConnectionLost   = "Lost connection to the optimizer service. Please resubmit."
	MsgJobFailed        = "The optimization job failed."
)

// ValidationError reports missing or invalid request fields. No network
// call is made when it is returned.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid optimization request: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SubmissionError means the service rejected the job or was unreachable
// while creating it.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// PollingError means a status fetch failed after the job was accepted.
type PollingError struct {
	JobID string
	Err   error
}

func (e *PollingError) Error() string {
	return MsgConnectionLost
}

func (e *PollingError) Unwrap() error {
	return e.Err
}

// JobFailedError means the service reported the job as failed.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return e.Message
}
