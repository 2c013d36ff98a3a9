package files

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Characters that are unsafe in local path segments on common filesystems.
const unsafeChars = `<>:"\|?*`

// SanitizeSegment makes a single path segment safe for local filesystems:
// NFC-normalized, unsafe characters stripped, control characters removed,
// and "." / ".." collapsed to an underscore so a remote name can never
// escape its destination directory.
func SanitizeSegment(segment string) string {
	normalized := norm.NFC.String(segment)
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if r < 0x20 || r == 0x7f {
			continue
		}
		if strings.ContainsRune(unsafeChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "_"
	}
	return cleaned
}

// SanitizeRelativeDir sanitizes every segment of a slash-separated relative
// directory, preserving the separator structure.
func SanitizeRelativeDir(relativeDir string) string {
	parts := strings.Split(relativeDir, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = SanitizeSegment(part)
	}
	return strings.Join(parts, "/")
}
