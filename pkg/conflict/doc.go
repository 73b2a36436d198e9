// Package conflict retries deployment creation when the target slot is taken.
//
// The management API answers 409 when a slot already holds a deployment.
// With overwrite allowed, Resolver looks the occupying deployment up, deletes
// it and tries once more. The delete is not polled: the retry is issued right
// away and, should the old deployment still be going away, its 409 is returned
// to the caller as is. No other error is retried.
package conflict
