// Package singleton enforces one daemon instance per state directory.
//
// Unlike the per-document locks in lockfile, the singleton protects a whole
// process lifetime: its lock file records pid, start time, and hostname, and
// a dead holder's file is reclaimed proactively by the next Acquire instead
// of waiting out a staleness timer. The check-and-claim sequence runs under
// a short-lived flock guard so two racing daemons cannot both reclaim.
package singleton
