package scanner_test

import (
	"testing"
	"time"

	"downspout/internal/remote"
	"downspout/internal/scanner"
)

func entryTree() []remote.Entry {
	mod := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	return []remote.Entry{
		{Name: "rootlink.mkv", Type: remote.EntryTypeSymlink, ModTime: mod},
		{Name: "plain.mkv", Type: remote.EntryTypeFile, Size: 100, ModTime: mod},
		{Name: "tv", Type: remote.EntryTypeDir, Children: []remote.Entry{
			{Name: "showA", Type: remote.EntryTypeDir, Children: []remote.Entry{
				{Name: "ep1.mkv", Type: remote.EntryTypeSymlink, ModTime: mod.Add(time.Hour)},
				{Name: "ignored.socket", Type: remote.EntryType(99)},
			}},
		}},
	}
}

func TestFlattenKeepsSymlinksAndAccumulatesPaths(t *testing.T) {
	got := scanner.Flatten(entryTree(), "/seedbox-sync", 20, false, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 symlink candidates, got %d", len(got))
	}

	byName := map[string]string{}
	for _, c := range got {
		byName[c.File.Name] = c.File.RelativeDir
		if !c.File.IsSymlink {
			t.Fatalf("unexpected non-symlink candidate %q", c.File.Name)
		}
		if c.File.Target != nil {
			t.Fatalf("symlink %q must not have a resolved target yet", c.File.Name)
		}
	}
	if byName["rootlink.mkv"] != "/" {
		t.Fatalf("unexpected root relative dir: %q", byName["rootlink.mkv"])
	}
	if byName["ep1.mkv"] != "/tv/showA/" {
		t.Fatalf("unexpected nested relative dir: %q", byName["ep1.mkv"])
	}
}

func TestFlattenIncludesPlainFilesInPermissiveMode(t *testing.T) {
	got := scanner.Flatten(entryTree(), "/seedbox-sync", 20, true, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	for _, c := range got {
		if c.File.Name != "plain.mkv" {
			continue
		}
		if c.File.Target == nil || c.File.Target.Size != 100 {
			t.Fatal("plain file must be complete straight from the listing")
		}
	}
}

func TestFlattenHonorsDepthBudget(t *testing.T) {
	// Budget 2: root plus one directory level. ep1.mkv sits two levels deep
	// and must be truncated away without an error.
	got := scanner.Flatten(entryTree(), "/seedbox-sync", 2, false, nil)
	if len(got) != 1 {
		t.Fatalf("expected only the root symlink, got %d candidates", len(got))
	}
	if got[0].File.Name != "rootlink.mkv" {
		t.Fatalf("unexpected candidate: %q", got[0].File.Name)
	}
}
