/*
Package metrics provides Prometheus metrics for cspublish.

All collectors are registered on the default registry at package init. Because a
publish run is a one-shot process there is no scrape endpoint; instead the CLI
writes the registry to a file with WriteTextfile when --metrics-file is set, for
a node exporter textfile collector (or a CI artifact) to pick up.

# Architecture

	┌──────────────────── METRICS ─────────────────────────┐
	│                                                        │
	│  deploy.Deployer     ──► DeploymentsTotal{result}      │
	│                     └──► PhaseDuration{phase}          │
	│  poller ────────────────► PollAttemptsTotal{kind}      │
	│  conflict ──────────────► ConflictRetriesTotal         │
	│  prereq ────────────────► CertificateUploadsTotal      │
	│  deploy (cleanup) ──────► BlobCleanupFailuresTotal     │
	│  cloud client ──────────► APIRequestsTotal{op,status}  │
	│                     └──► APIRequestDuration{op}        │
	│                                                        │
	│  WriteTextfile(path) ──► cspublish.prom                │
	└────────────────────────────────────────────────────────┘

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.PhaseDuration, "uploading")
*/
package metrics
