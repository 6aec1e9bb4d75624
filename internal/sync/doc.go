// Package sync propagates entity changes between the replicated stores.
//
// A change written to one store is fanned out by the Coordinator to every
// other store through one applier.StoreApplier per target. Targets are
// applied concurrently up to a worker limit and each target is isolated:
// its failure is recorded as an attempt outcome and never reaches the
// writer or the other targets.
//
// # Listeners
//
// Two listeners observe a fan-out:
//
//   - AttemptRecorder receives one Outcome per (entity, source, target)
//     attempt and persists it in the attempt log.
//   - PostWriteChecker receives one BatchResult after the fan-out and
//     compares the stores immediately, returning a ticket id when they
//     diverge.
//
// Both are installed after construction with SetRecorder and SetChecker
// because the attempt log and conflict manager themselves depend on the
// coordinator. Listener errors and panics are logged and swallowed.
//
// # Full resync
//
// FullSyncEntity and FullSyncAll replay every row of a source table as an
// UPDATE. Only one sweep per (entity type, source) runs at a time.
package sync
