// Package model defines the cluster status types shared across the dashboard gateway.
package model

import (
	"errors"
	"time"
)

// Features are the dashboard capabilities the cluster enables.
type Features struct {
	WebSubmit  bool `json:"web-submit"`
	WebCancel  bool `json:"web-cancel"`
	WebRescale bool `json:"web-rescale"`
	WebHistory bool `json:"web-history"`
}

// ClusterConfig is the payload served by the cluster's status endpoint.
type ClusterConfig struct {
	RefreshInterval int64    `json:"refresh-interval"`
	TimezoneName    string   `json:"timezone-name"`
	TimezoneOffset  int64    `json:"timezone-offset"`
	FlinkVersion    string   `json:"flink-version"`
	FlinkRevision   string   `json:"flink-revision"`
	Features        Features `json:"features"`
}

// Refresh returns the refresh interval advertised by the cluster, or fallback when unset.
func (c *ClusterConfig) Refresh(fallback time.Duration) time.Duration {
	if c == nil || c.RefreshInterval <= 0 {
		return fallback
	}
	return time.Duration(c.RefreshInterval) * time.Millisecond
}

// ClusterStatus is the reachability and configuration snapshot of the cluster.
type ClusterStatus struct {
	Reachable bool           `json:"reachable"`
	Config    *ClusterConfig `json:"config,omitempty"`
	Error     string         `json:"error,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
}

// Version returns the cluster version, or an empty string when unknown.
func (s ClusterStatus) Version() string {
	if s.Config == nil {
		return ""
	}
	return s.Config.FlinkVersion
}

// Boot failure reasons.
const (
	ReasonNetwork   = "network error"
	ReasonTimeout   = "timeout"
	ReasonMalformed = "malformed payload"
	ReasonCanceled  = "canceled"
)

// ErrBootFailed is wrapped by every failed boot outcome.
var ErrBootFailed = errors.New("cluster boot failed")

// BootOutcome is the terminal result of the boot probe.
type BootOutcome struct {
	Status ClusterStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Err    error         `json:"-"`
}

// Succeeded builds a successful outcome.
func Succeeded(status ClusterStatus) BootOutcome {
	return BootOutcome{Status: status}
}

// Failed builds a failed outcome carrying reason and the underlying cause.
func Failed(reason string, cause error) BootOutcome {
	return BootOutcome{
		Status: ClusterStatus{
			Reachable: false,
			Error:     reason,
			CheckedAt: time.Now(),
		},
		Reason: reason,
		Err:    cause,
	}
}

// Succeeded reports whether the boot probe reached the cluster.
func (o BootOutcome) Succeeded() bool {
	return o.Reason == ""
}

// Error returns the failure as an error wrapping ErrBootFailed, or nil on success.
func (o BootOutcome) Error() error {
	if o.Succeeded() {
		return nil
	}
	if o.Err != nil {
		return &bootError{reason: o.Reason, cause: o.Err}
	}
	return &bootError{reason: o.Reason}
}

type bootError struct {
	reason string
	cause  error
}

func (e *bootError) Error() string {
	if e.cause == nil {
		return ErrBootFailed.Error() + ": " + e.reason
	}
	return ErrBootFailed.Error() + ": " + e.reason + ": " + e.cause.Error()
}

func (e *bootError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrBootFailed}
	}
	return []error{ErrBootFailed, e.cause}
}
