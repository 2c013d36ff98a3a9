// Package syncer drives the scan, download, and delete-handoff cycle.
//
// The orchestrator is the single owner of the download queue. Scans run in
// their own sessions and report back through the scanner sink interface;
// transfers run in goroutines bounded by a weighted semaphore and report back
// through one completion path. Files that land locally, or that already
// exist locally, are handed to the delete queue rather than removed inline.
package syncer
