// Package scanner discovers ready-to-transfer files on the remote server.
//
// One Session is one scan: it lists the sync root recursively, flattens the
// tree under a depth budget, resolves symlink target sizes one at a time,
// and streams discoveries to its sink. Sessions are single-use; a watchdog
// cancels scans that outlive their deadline.
package scanner
