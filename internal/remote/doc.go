// Package remote defines the listing/transfer client consumed by the sync
// core and its FTP implementation.
//
// Connections are exclusively owned: the scanner holds one for the duration
// of a scan, every transfer dials its own, and the delete queue dials when it
// flushes. Transport-level failures surface as call errors; authentication
// failures are distinguishable via IsAuthError so callers can stop retrying.
package remote
