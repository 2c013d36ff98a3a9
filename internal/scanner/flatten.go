package scanner

import (
	"log/slog"
	"time"

	"downspout/internal/files"
	"downspout/internal/logging"
	"downspout/internal/remote"
)

// Candidate pairs a flattened file with the modification time reported by the
// listing, used for newest-first ordering before symlink targets resolve.
type Candidate struct {
	File    *files.DiscoveredFile
	ModTime time.Time
}

// Flatten turns a nested listing into a flat candidate sequence. Symlinks are
// always kept; plain files only when includePlainFiles is set; directories
// recurse until the depth budget runs out. Truncated subtrees are logged, not
// errors: partial results degrade gracefully.
func Flatten(entries []remote.Entry, basePath string, depth int, includePlainFiles bool, logger *slog.Logger) []Candidate {
	if logger == nil {
		logger = logging.NewNop()
	}
	out := make([]Candidate, 0, len(entries))
	flattenInto(&out, entries, basePath, "/", depth, includePlainFiles, logger)
	return out
}

func flattenInto(out *[]Candidate, entries []remote.Entry, basePath, relativeDir string, depth int, includePlainFiles bool, logger *slog.Logger) {
	for _, entry := range entries {
		switch entry.Type {
		case remote.EntryTypeDir:
			if depth <= 1 {
				logger.Info("depth budget exhausted, truncating subtree",
					logging.String("directory", relativeDir+entry.Name),
				)
				continue
			}
			flattenInto(out, entry.Children, basePath, relativeDir+entry.Name+"/", depth-1, includePlainFiles, logger)
		case remote.EntryTypeSymlink:
			*out = append(*out, newCandidate(entry, basePath, relativeDir, true))
		case remote.EntryTypeFile:
			if includePlainFiles {
				*out = append(*out, newCandidate(entry, basePath, relativeDir, false))
			}
		}
	}
}

func newCandidate(entry remote.Entry, basePath, relativeDir string, symlink bool) Candidate {
	file := &files.DiscoveredFile{
		BasePath:    basePath,
		RelativeDir: relativeDir,
		Name:        entry.Name,
		IsSymlink:   symlink,
	}
	if !symlink {
		// Plain files are complete as listed; no follow-up resolution.
		file.Target = &files.TargetInfo{Size: entry.Size, ModTime: entry.ModTime}
	}
	return Candidate{File: file, ModTime: entry.ModTime}
}
