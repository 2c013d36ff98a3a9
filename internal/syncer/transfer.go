package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"downspout/internal/config"
	"downspout/internal/files"
	"downspout/internal/logging"
	"downspout/internal/remote"
)

// Downloader transfers one remote file into a local destination directory
// and returns the final local path.
type Downloader interface {
	Download(ctx context.Context, file *files.DiscoveredFile, destDir string) (string, error)
}

// partSuffix is appended to in-flight transfers so a completed file at the
// final name always implies a finished transfer.
const partSuffix = ".part"

// FTPDownloader streams remote files over a dedicated FTP connection per
// transfer.
type FTPDownloader struct {
	dialer remote.Dialer
	logger *slog.Logger
	margin int64
}

// NewFTPDownloader builds the production downloader.
func NewFTPDownloader(cfg *config.Config, dialer remote.Dialer, logger *slog.Logger) *FTPDownloader {
	return &FTPDownloader{
		dialer: dialer,
		logger: logging.WithComponent(logger, "transfer"),
		margin: int64(cfg.Sync.FreeSpaceMarginMiB) * 1024 * 1024,
	}
}

// Download fetches the file to <name>.part and renames it into place once the
// bytes are on disk, preserving the remote modification time when known.
func (d *FTPDownloader) Download(ctx context.Context, file *files.DiscoveredFile, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination %s: %w", destDir, err)
	}
	if err := checkFreeSpace(destDir, file.Size(), d.margin); err != nil {
		return "", err
	}

	client, err := d.dialer.Dial(ctx)
	if err != nil {
		return "", fmt.Errorf("connect for transfer: %w", err)
	}
	defer func() { _ = client.Destroy() }()

	remotePath := file.RemotePath()
	body, err := client.Retrieve(ctx, remotePath)
	if err != nil {
		return "", err
	}
	defer body.Close()

	name := files.SanitizeSegment(file.Name)
	partPath := filepath.Join(destDir, name+partSuffix)
	finalPath := filepath.Join(destDir, name)

	written, err := writeFile(partPath, body)
	if err != nil {
		_ = os.Remove(partPath)
		return "", fmt.Errorf("write %s: %w", partPath, err)
	}
	if size := file.Size(); size > 0 && written != size {
		_ = os.Remove(partPath)
		return "", fmt.Errorf("transfer %s: size mismatch, expected %d bytes, wrote %d", remotePath, size, written)
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		_ = os.Remove(partPath)
		return "", fmt.Errorf("finalize %s: %w", finalPath, err)
	}
	if mod := file.ModTime(); !mod.IsZero() {
		_ = os.Chtimes(finalPath, mod, mod)
	}

	d.logger.Debug("transfer landed",
		logging.String("remote", remotePath),
		logging.String("local", finalPath),
		logging.Int64("bytes", written),
	)
	return finalPath, nil
}

func writeFile(path string, body io.Reader) (int64, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, body)
	if err != nil {
		_ = out.Close()
		return written, err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return written, err
	}
	return written, out.Close()
}

// checkFreeSpace refuses a transfer that would leave the destination volume
// with less than the configured margin.
func checkFreeSpace(dir string, need, margin int64) error {
	if need <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", dir, err)
	}
	free := int64(stat.Bavail) * int64(stat.Bsize)
	if need+margin > free {
		return fmt.Errorf("insufficient space in %s: need %d bytes plus %d margin, have %d", dir, need, margin, free)
	}
	return nil
}
