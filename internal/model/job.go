package model

import (
	"strings"
	"time"
)

// JobStatus is the lifecycle status of one optimization run on the service.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further polling occurs after this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ParseServiceStatus maps a status string reported by the optimizer service.
// Any unrecognised string is a phase description of a running job
// ("Preparing data...", "Generating reach curve...").
func ParseServiceStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "pending":
		return JobStatusQueued
	case "completed", "complete":
		return JobStatusCompleted
	case "error", "failed":
		return JobStatusFailed
	default:
		return JobStatusRunning
	}
}

// ControllerState is the state of the job lifecycle controller itself.
type ControllerState string

const (
	StateIdle       ControllerState = "idle"
	StateSubmitting ControllerState = "submitting"
	StatePolling    ControllerState = "polling"
	StateCompleted  ControllerState = "completed"
	StateFailed     ControllerState = "failed"
)

// OptimizationResult is the optimizer's answer for the full budget.
type OptimizationResult struct {
	TotalCost          float64             `json:"total_cost" yaml:"total_cost"`
	NetReachPercentage float64             `json:"net_reach_percentage" yaml:"net_reach_percentage"`
	NetReachPeople     float64             `json:"net_reach_people" yaml:"net_reach_people"`
	AvgFrequency       float64             `json:"avg_frequency" yaml:"avg_frequency"`
	GRPs               float64             `json:"grps" yaml:"grps"`
	TotalGrossCume     float64             `json:"total_gross_cume" yaml:"total_gross_cume"`
	Plan               []StationAllocation `json:"plan" yaml:"plan"`
}

// StationAllocation is one purchased station in a plan.
type StationAllocation struct {
	Station string  `json:"station" yaml:"station"`
	Cost    float64 `json:"cost" yaml:"cost"`
	Cume    float64 `json:"cume" yaml:"cume"`
}

// ReachPoint is one point on the reach curve.
type ReachPoint struct {
	Budget float64 `json:"budget" yaml:"budget"`
	Reach  float64 `json:"reach" yaml:"reach"`
}

// JobView is an immutable snapshot of the current job as seen by observers.
// Slices and the result are shared between snapshots and must be treated as
// read-only.
type JobView struct {
	SubmissionID  string              `json:"submission_id,omitempty" yaml:"submission_id,omitempty"`
	JobID         string              `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	State         ControllerState     `json:"state" yaml:"state"`
	Status        JobStatus           `json:"status,omitempty" yaml:"status,omitempty"`
	Progress      float64             `json:"progress" yaml:"progress"`
	StatusMessage string              `json:"status_message,omitempty" yaml:"status_message,omitempty"`
	Result        *OptimizationResult `json:"result,omitempty" yaml:"result,omitempty"`
	ReachCurve    []ReachPoint        `json:"reach_curve,omitempty" yaml:"reach_curve,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	IsActive      bool                `json:"is_active" yaml:"is_active"`
	UpdatedAt     time.Time           `json:"updated_at" yaml:"updated_at"`
}
