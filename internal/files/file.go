package files

import (
	"sort"
	"time"
)

// TargetInfo holds the resolved metadata of a symlink target. It is absent
// until the scanner completes the follow-up stat for the entry.
type TargetInfo struct {
	Size    int64
	ModTime time.Time
}

// DiscoveredFile is the unit of work flowing through the sync pipeline.
// Identity is BasePath + RelativeDir + Name; Target and Downloading carry
// mutable state and never participate in equality.
type DiscoveredFile struct {
	BasePath    string
	RelativeDir string
	Name        string
	IsSymlink   bool
	Target      *TargetInfo
	Downloading bool
}

// Key returns the identity string used for deduplication.
func (f *DiscoveredFile) Key() string {
	return f.BasePath + f.RelativeDir + f.Name
}

// Equal reports whether two files share the same identity.
func (f *DiscoveredFile) Equal(other *DiscoveredFile) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Key() == other.Key()
}

// RemotePath returns the absolute remote path of the file.
func (f *DiscoveredFile) RemotePath() string {
	return f.BasePath + f.RelativeDir + f.Name
}

// Size returns the resolved size, or zero when the target is unresolved.
func (f *DiscoveredFile) Size() int64 {
	if f.Target == nil {
		return 0
	}
	return f.Target.Size
}

// ModTime returns the resolved modification time, or the zero time when the
// target is unresolved.
func (f *DiscoveredFile) ModTime() time.Time {
	if f.Target == nil {
		return time.Time{}
	}
	return f.Target.ModTime
}

// SortNewestFirst orders files by descending modification time. Entries with
// unknown times sort last; the original order is preserved among equals.
func SortNewestFirst(list []*DiscoveredFile) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ModTime().After(list[j].ModTime())
	})
}
