package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPackageType is returned when a local (emulator) package is
	// targeted at a cloud deployment
	ErrInvalidPackageType = errors.New("invalid package type for cloud deployments")

	// ErrCancelled is returned when a wait is interrupted by cancellation or timeout
	ErrCancelled = errors.New("operation cancelled")

	// ErrNotFound indicates that a requested cloud resource does not exist
	ErrNotFound = errors.New("not found")
)

// ValidationError reports bad or missing input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// AuthenticationError reports an unusable publish settings file or subscription
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ConnectivityError reports that the management API could not be reached
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("failed to call the management service, check network and proxy settings: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// DeploymentConflictError reports an occupied slot when overwriting is disabled
type DeploymentConflictError struct {
	Slot DeploymentSlot
}

func (e *DeploymentConflictError) Error() string {
	return fmt.Sprintf("a deployment already exists in the %s slot and overwrite is disabled", e.Slot)
}

// OperationFailedError carries the error payload of an asynchronous operation
type OperationFailedError struct {
	RequestID string
	Code      string
	Message   string
}

func (e *OperationFailedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("operation %s failed: %s: %s", e.RequestID, e.Code, e.Message)
	}
	return fmt.Sprintf("operation %s failed: %s", e.RequestID, e.Message)
}

// DeploymentUnhealthyError reports a role instance that settled in a non-ready status
type DeploymentUnhealthyError struct {
	Status InstanceStatus
}

func (e *DeploymentUnhealthyError) Error() string {
	if e.Status == "" {
		return "deployment is unhealthy: no role instances reported"
	}
	return fmt.Sprintf("deployment is unhealthy: role instance status %s", e.Status)
}

// PhaseError attaches the orchestration phase in which a failure happened
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
