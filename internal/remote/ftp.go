package remote

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"downspout/internal/config"
)

// FTPDialer dials fresh FTP connections from server configuration.
type FTPDialer struct {
	addr     string
	user     string
	password string
	timeout  time.Duration
	maxDepth int
}

// NewFTPDialer builds a dialer from configuration.
func NewFTPDialer(cfg *config.Config) *FTPDialer {
	return &FTPDialer{
		addr:     cfg.ServerAddr(),
		user:     cfg.Server.User,
		password: cfg.Server.Password,
		timeout:  time.Duration(cfg.Server.ConnectTimeout) * time.Second,
		maxDepth: cfg.Sync.ScanDepth,
	}
}

// Dial connects and logs in, returning an exclusively-owned client.
func (d *FTPDialer) Dial(ctx context.Context) (Client, error) {
	conn, err := ftp.Dial(d.addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(d.timeout))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.addr, err)
	}
	if err := conn.Login(d.user, d.password); err != nil {
		_ = conn.Quit()
		if IsAuthError(err) {
			return nil, fmt.Errorf("login %s: %w: %s", d.addr, ErrAuth, err)
		}
		return nil, fmt.Errorf("login %s: %w", d.addr, err)
	}
	return &ftpClient{conn: conn, maxDepth: d.maxDepth}, nil
}

type ftpClient struct {
	conn     *ftp.ServerConn
	maxDepth int
}

func (c *ftpClient) List(ctx context.Context, path string) ([]Entry, error) {
	return c.walk(ctx, path, c.maxDepth)
}

// walk fetches one directory level and recurses into subdirectories. The
// depth guard only bounds how far the connection is exercised; the scanner
// applies its own budget during flattening.
func (c *ftpClient) walk(ctx context.Context, path string, depth int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := c.conn.List(path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		if item.Name == "." || item.Name == ".." {
			continue
		}
		entry := convertEntry(item)
		if entry.Type == EntryTypeDir && depth > 1 {
			children, err := c.walk(ctx, joinRemote(path, item.Name), depth-1)
			if err != nil {
				return nil, err
			}
			entry.Children = children
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *ftpClient) Stat(ctx context.Context, path string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := c.conn.List(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		if item.Name == "." || item.Name == ".." {
			continue
		}
		entries = append(entries, convertEntry(item))
	}
	return entries, nil
}

func (c *ftpClient) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.conn.Retr(path)
	if err != nil {
		return nil, fmt.Errorf("retrieve %s: %w", path, err)
	}
	return resp, nil
}

func (c *ftpClient) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.conn.Delete(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (c *ftpClient) Destroy() error {
	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil
	return conn.Quit()
}

func convertEntry(item *ftp.Entry) Entry {
	entry := Entry{
		Name:    item.Name,
		Size:    int64(item.Size),
		ModTime: item.Time,
	}
	switch item.Type {
	case ftp.EntryTypeFolder:
		entry.Type = EntryTypeDir
	case ftp.EntryTypeLink:
		entry.Type = EntryTypeSymlink
	default:
		entry.Type = EntryTypeFile
	}
	return entry
}

func joinRemote(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}
