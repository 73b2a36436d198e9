/*
Package log provides structured logging for cspublish using zerolog.

A single package-level Logger is configured once by Init from the CLI flags and
shared by every package. Components derive child loggers so each line carries
the part of the publish pipeline that wrote it:

	logger := log.WithComponent("poller")
	logger.Debug().Str("request_id", id).Msg("Operation still in progress")

Until Init runs, Logger discards everything, which keeps library use and tests quiet.

# Output

Console output (default) is meant for a terminal or a build log:

	2026-10-17T10:30:00Z INF Uploaded deployment package component=upload blob=svc1_Staging.cspkg

JSON output (--log-json) is meant for CI systems that ingest structured logs:

	{"level":"info","component":"upload","blob":"svc1_Staging.cspkg","time":"...","message":"Uploaded deployment package"}

# Context Helpers

  - WithComponent: component=<package>
  - WithCloudService: cloud_service=<name>
  - WithRunID: run_id=<uuid of the publish run>
  - WithRequestID: request_id=<management API request id>
*/
package log
