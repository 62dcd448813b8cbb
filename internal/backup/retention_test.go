package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCountPolicy(t *testing.T) {
	now := time.Now()
	backups := []Info{
		{Path: "/b/history-5.json.zst", CreatedAt: now},
		{Path: "/b/history-4.json.zst", CreatedAt: now.Add(-1 * time.Hour)},
		{Path: "/b/history-3.json.zst", CreatedAt: now.Add(-2 * time.Hour)},
		{Path: "/b/history-2.json.zst", CreatedAt: now.Add(-3 * time.Hour)},
	}

	keep := (&CountPolicy{MaxCount: 2}).Apply(backups)
	if len(keep) != 2 || keep[0].Path != "/b/history-5.json.zst" || keep[1].Path != "/b/history-4.json.zst" {
		t.Errorf("kept %+v", keep)
	}
	if keep := (&CountPolicy{MaxCount: 10}).Apply(backups); len(keep) != 4 {
		t.Errorf("kept %d, want 4", len(keep))
	}
}

func TestAgeAndCompositePolicy(t *testing.T) {
	now := time.Now()
	backups := []Info{
		{Path: "/b/new", CreatedAt: now.Add(-1 * time.Hour)},
		{Path: "/b/mid", CreatedAt: now.Add(-48 * time.Hour)},
		{Path: "/b/old", CreatedAt: now.Add(-720 * time.Hour)},
	}

	age := &AgePolicy{MaxAge: 24 * time.Hour}
	if keep := age.Apply(backups); len(keep) != 1 || keep[0].Path != "/b/new" {
		t.Errorf("AgePolicy kept %+v", keep)
	}

	composite := &CompositePolicy{Policies: []RetentionPolicy{age, &CountPolicy{MaxCount: 2}}}
	keep := composite.Apply(backups)
	if len(keep) != 2 || keep[1].Path != "/b/mid" {
		t.Errorf("CompositePolicy kept %+v", keep)
	}
}

func TestListAndApplyRetention(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"history-20260101-000000.json.zst",
		"history-20260301-000000.json.zst",
		"history-20260201-000000.json.zst",
		"notes.txt",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	list, err := List(dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 || filepath.Base(list[0].Path) != "history-20260301-000000.json.zst" {
		t.Fatalf("List() = %+v", list)
	}

	deleted, err := ApplyRetention(dir, &CountPolicy{MaxCount: 1})
	if err != nil {
		t.Fatalf("ApplyRetention() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted %v", deleted)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("non-snapshot files must be left alone")
	}

	if list, err := List(filepath.Join(dir, "missing")); err != nil || list != nil {
		t.Errorf("List(missing) = %v, %v", list, err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"12h", 12 * time.Hour, false},
		{"", 0, true},
		{"d", 0, true},
		{"5y", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, %v", tt.in, got, err)
		}
	}
}
