// Package deletequeue removes files from the remote server after they have
// safely landed locally. Deletion is deliberately deferred and pausable so it
// never competes with an active scan for remote connections.
package deletequeue
