/*
Package poller waits for asynchronous cloud work to finish.

Two waits are provided, both driven by a ticker and interruptible through the
context:

	PollUntilTerminal           queries an operation immediately, then every
	                            Interval (5s), until it leaves InProgress
	WaitForRoleInstancesReady   waits RoleInterval (20s) before each deployment
	                            snapshot, until a role instance settles

# Operation Polling

A result carrying an error payload fails with types.OperationFailedError on the
call that returned it; polling does not continue. Errors from the query itself
are returned as they are, with no retry at this level. Cancellation of the
context or expiry of Timeout returns an error matching both types.ErrCancelled
and the context error.

# Role Readiness

Instances are inspected in the order the API lists them and the first one in a
settled status (ReadyRole, CyclingRole, FailedStartingVM, UnresponsiveRole)
ends the wait. Only ReadyRole is a success. A deployment whose remaining
instances are still starting is therefore reported as ready as soon as one
instance is; this is kept as the established behavior of the tool.

A snapshot without role instances keeps the wait going.

The progress indicator passed in is started before the first sleep and stopped
exactly once, whichever way the wait ends.
*/
package poller
