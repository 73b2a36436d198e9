/*
Package health verifies that a freshly published site answers HTTP requests.

Role instances reaching ReadyRole means the fabric considers them started, not
that the application inside serves traffic. With verification enabled the CLI
runs Verify against the site URL after a successful run.

# Checking

	┌──────────────┐  Check(ctx)   ┌────────────────┐
	│    Verify    │ ────────────▶ │  HTTPChecker   │── GET <site URL>
	│  (loop)      │ ◀──────────── │  200-399 = ok  │
	└──────┬───────┘    Result     └────────────────┘
	       │
	       ▼
	    Status: consecutive successes / failures

Verify waits StartPeriod, then checks every Interval. The first healthy result
ends the loop; Retries consecutive failures end it with an error. Each check is
bounded by Timeout.

A failed verification is reported but does not turn a successful deployment
into a failed one: the deployment exists and is running either way.
*/
package health
