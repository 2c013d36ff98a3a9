package remote

import "time"

// EntryType classifies a remote listing entry.
type EntryType int

const (
	EntryTypeFile EntryType = iota
	EntryTypeDir
	EntryTypeSymlink
)

func (t EntryType) String() string {
	switch t {
	case EntryTypeFile:
		return "file"
	case EntryTypeDir:
		return "directory"
	case EntryTypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Entry is one node of a remote directory listing. Directory entries carry
// their children; the tree is transient and discarded after flattening.
type Entry struct {
	Name     string
	Type     EntryType
	Size     int64
	ModTime  time.Time
	Children []Entry
}
