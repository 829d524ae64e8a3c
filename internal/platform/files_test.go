package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	// Create temporary directory for testing
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test_dir")

	// Directory should not exist initially
	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	// Create directory
	err := CreateDirectoryIfNotExists(testDir)
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	// Directory should now exist
	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	err = CreateDirectoryIfNotExists(testDir)
	if err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestNewWorkDir_Unique(t *testing.T) {
	base := t.TempDir()

	dir1, err := NewWorkDir(base, "run-a")
	if err != nil {
		t.Fatalf("Failed to create work dir: %v", err)
	}
	dir2, err := NewWorkDir(base, "run-a")
	if err != nil {
		t.Fatalf("Failed to create second work dir: %v", err)
	}

	if dir1 == dir2 {
		t.Errorf("Expected unique directories, got %s twice", dir1)
	}
	if !strings.HasPrefix(filepath.Base(dir1), WorkDirPrefix+"run-a-") {
		t.Errorf("Unexpected work dir name: %s", dir1)
	}
	if filepath.Dir(dir1) != base {
		t.Errorf("Expected work dir under %s, got %s", base, dir1)
	}
}

func TestNewWorkDir_CreatesBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "base")

	dir, err := NewWorkDir(base, "")
	if err != nil {
		t.Fatalf("Failed to create work dir: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Work dir does not exist: %v", err)
	}
}

func TestRemoveWorkDir(t *testing.T) {
	dir, err := NewWorkDir(t.TempDir(), "cleanup")
	if err != nil {
		t.Fatalf("Failed to create work dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "song_1_a.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := RemoveWorkDir(dir); err != nil {
		t.Fatalf("Failed to remove work dir: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("Work dir still exists after removal: %s", dir)
	}

	// Removing twice is fine
	if err := RemoveWorkDir(dir); err != nil {
		t.Errorf("Second removal failed: %v", err)
	}

	if err := RemoveWorkDir(""); err != nil {
		t.Errorf("Empty path should be a no-op, got %v", err)
	}
}

func TestRemoveWorkDir_RefusesForeignPath(t *testing.T) {
	dir := t.TempDir()

	if err := RemoveWorkDir(dir); err == nil {
		t.Error("Expected refusal for a directory without the work dir prefix")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Foreign directory should not have been removed: %v", err)
	}
}

func TestFindFileByPrefix(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"song_1_First_Song.mp3",
		"song_2_Second.webm.part",
		"song_2_Second.mp3.part",
		"song_12_Twelfth.mp3",
		"song_3_Third.m4a",
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	tests := []struct {
		name     string
		prefix   string
		ext      string
		expected string
		wantErr  bool
	}{
		{"exact job match", "song_1_", ".mp3", "song_1_First_Song.mp3", false},
		{"prefix does not bleed into other index", "song_12_", ".mp3", "song_12_Twelfth.mp3", false},
		{"partial files are ignored", "song_2_", ".mp3", "", true},
		{"wrong extension", "song_3_", ".mp3", "", true},
		{"any extension", "song_3_", "", "song_3_Third.m4a", false},
		{"no match", "song_9_", ".mp3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindFileByPrefix(dir, tt.prefix, tt.ext)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if filepath.Base(got) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, filepath.Base(got))
			}
		})
	}
}

func TestFindFileByPrefix_BadInput(t *testing.T) {
	if _, err := FindFileByPrefix("", "song_1_", ".mp3"); err == nil {
		t.Error("Expected error for empty directory")
	}
	if _, err := FindFileByPrefix(t.TempDir(), "", ".mp3"); err == nil {
		t.Error("Expected error for empty prefix")
	}
	if _, err := FindFileByPrefix(filepath.Join(t.TempDir(), "missing"), "song_1_", ".mp3"); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestIsPartialFile(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"song_1_a.mp3", false},
		{"song_1_a.webm.part", true},
		{"song_1_a.ytdl", true},
		{"song_1_a.temp", true},
	}

	for _, test := range tests {
		if got := isPartialFile(test.name); got != test.expected {
			t.Errorf("isPartialFile(%s) = %v, expected %v", test.name, got, test.expected)
		}
	}
}
