// Package monitor keeps a bounded, time-pruned log of processing metrics and
// derives rolling statistics and tuning recommendations from it. Every recorded
// metric is also exported through OpenTelemetry instruments.
package monitor
