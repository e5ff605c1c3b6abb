// Package lockfile implements advisory, PID-stamped lock files that serialize
// document access across unrelated processes sharing one state directory.
//
// Correctness rests on the filesystem's exclusive-create atomicity: a lock is
// held by whoever created its file with O_EXCL. Waiters poll at a fixed
// interval until the file disappears or a timeout elapses. On timeout the
// recorded holder is probed; a dead holder's lock is removed so the next
// attempt succeeds, while a live holder is never stolen from.
package lockfile
