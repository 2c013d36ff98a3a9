package syncer

import (
	"path/filepath"
	"strings"

	"downspout/internal/config"
	"downspout/internal/files"
)

// ResolveDestination maps a file's relative directory to its local
// destination directory. Mappings are tried in order; the first remote prefix
// that is a directory-bounded prefix of the relative directory wins, and the
// remainder is appended to the mapping's local prefix. Unmatched files land
// under the default root. Every segment is sanitized for local filesystems.
func ResolveDestination(mappings []config.Mapping, defaultRoot, relativeDir string) string {
	for _, mapping := range mappings {
		if !strings.HasPrefix(relativeDir, mapping.Remote) {
			continue
		}
		remainder := strings.TrimPrefix(relativeDir, mapping.Remote)
		return filepath.Join(mapping.Local, filepath.FromSlash(files.SanitizeRelativeDir(remainder)))
	}
	return filepath.Join(defaultRoot, filepath.FromSlash(files.SanitizeRelativeDir(relativeDir)))
}

// DestinationDir resolves the local directory for one discovered file.
func (o *Orchestrator) DestinationDir(file *files.DiscoveredFile) string {
	return ResolveDestination(o.cfg.Mappings, o.cfg.Paths.LocalRoot, file.RelativeDir)
}

// LocalPath resolves the final local path for one discovered file.
func (o *Orchestrator) LocalPath(file *files.DiscoveredFile) string {
	return filepath.Join(o.DestinationDir(file), files.SanitizeSegment(file.Name))
}
