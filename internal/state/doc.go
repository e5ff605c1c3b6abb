// Package state implements the shared persistent store coordinating
// PoppoBuilder's cron-spawned processes.
//
// Each collection lives in its own JSON document under the state directory:
// the processed-issue set, the processed-comment index, the running-task map,
// the pending-task list, and the last-run record. Every mutation happens
// under an advisory file lock scoped to its document and lands on disk
// through an atomic replace, so unrelated processes can read and write the
// same directory without lost updates or torn files.
//
// Corrupt documents self-heal: a load that cannot parse or has the wrong
// container shape logs a warning and yields the type's empty value, and the
// auditor's repair pass rewrites the file. Callers never see a parse error
// from a Load method.
package state
