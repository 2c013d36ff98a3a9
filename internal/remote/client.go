package remote

import (
	"context"
	"io"
)

// Client is one connection to the remote file server. A client is exclusively
// owned by its consumer (one scan, one transfer) and never shared; Destroy
// releases the connection and must be called on every teardown path.
type Client interface {
	// List returns the nested listing rooted at path, recursing into
	// subdirectories up to the client's depth limit.
	List(ctx context.Context, path string) ([]Entry, error)

	// Stat lists a single absolute path without recursion. Symlink size
	// resolution requires exactly one result; callers enforce that.
	Stat(ctx context.Context, path string) ([]Entry, error)

	// Retrieve opens the remote file for reading.
	Retrieve(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the remote file.
	Delete(ctx context.Context, path string) error

	// Destroy closes the connection. Safe to call more than once.
	Destroy() error
}

// Dialer produces fresh client connections. The scanner, each transfer, and
// the delete queue dial independently so connection ownership stays exclusive.
type Dialer interface {
	Dial(ctx context.Context) (Client, error)
}
