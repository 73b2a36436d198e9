/*
Package types defines the data model shared by every cspublish package.

The model covers one publish run against a classic cloud service: the validated
DeploymentRequest, the two deployment slots, snapshots returned by the management
API (AsyncOperation, Deployment, RoleInstance, Certificate, StorageAccount) and the
error taxonomy used to report where and why a run stopped.

# Core Types

Request:
  - DeploymentRequest: immutable, validated at construction by NewDeploymentRequest
  - RequestOptions: raw inputs as they come from flags or a config file
  - DeploymentSlot: Staging or Production (ParseSlot is case-insensitive)
  - PackageType: local (emulator only) or cloud

Snapshots (read-only, replaced on every poll):
  - AsyncOperation: request id, status and optional error payload
  - Deployment / RoleInstance: deployment status and per-instance health
  - CloudService: hosted service with the deployments it currently runs
  - Certificate: identified by thumbprint
  - StorageAccount: blob endpoint and access keys

# Instance Health

A role instance is settled once it reports one of:

	ReadyRole         success
	CyclingRole       failure
	FailedStartingVM  failure
	UnresponsiveRole  failure

Every other status (Initializing, Busy, StartingRole, ...) means keep polling.

# Errors

	ValidationError           bad or missing input, raised before any network call
	ErrInvalidPackageType     local package targeted at a cloud deployment
	AuthenticationError       unusable publish settings or subscription
	ConnectivityError         management API unreachable
	DeploymentConflictError   slot occupied and overwrite disabled
	OperationFailedError      async operation reported an error payload
	DeploymentUnhealthyError  role instance settled in a non-ready status
	ErrCancelled              wait interrupted by cancellation or timeout
	PhaseError                wraps any of the above with the orchestration phase

All error types work with errors.Is and errors.As.
*/
package types
