package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const markup = `<div id="card">
  <h1>Hello</h1>
</div>`

func TestManager_Compare_NewSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	suiteFile := filepath.Join(tmpDir, "page.domspec.yaml")

	manager := NewManager(true) // Update mode enabled

	result := manager.Compare(suiteFile, "card", markup)

	if !result.Passed {
		t.Errorf("expected passed to be true, got false: %s", result.Message)
	}
	if !result.IsNew {
		t.Error("expected IsNew to be true")
	}

	// Verify snapshot file was created
	snapshotPath := filepath.Join(tmpDir, SnapshotDir, "page.snap.json")
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		t.Error("expected snapshot file to be created")
	}
}

func TestManager_Compare_ExistingSnapshot_Match(t *testing.T) {
	tmpDir := t.TempDir()
	suiteFile := filepath.Join(tmpDir, "page.domspec.yaml")

	manager := NewManager(true)

	// Create initial snapshot
	result := manager.Compare(suiteFile, "card", markup)
	if !result.Passed || !result.IsNew {
		t.Fatal("failed to create initial snapshot")
	}

	// Compare with the same markup from a fresh manager
	manager2 := NewManager(false)
	result = manager2.Compare(suiteFile, "card", markup+"  \n")

	if !result.Passed {
		t.Errorf("expected match, got: %s", result.Message)
	}
}

func TestManager_Compare_ExistingSnapshot_Mismatch(t *testing.T) {
	tmpDir := t.TempDir()
	suiteFile := filepath.Join(tmpDir, "page.domspec.yaml")

	NewManager(true).Compare(suiteFile, "card", markup)

	manager := NewManager(false)
	changed := strings.Replace(markup, "Hello", "Goodbye", 1)
	result := manager.Compare(suiteFile, "card", changed)

	if result.Passed {
		t.Error("expected mismatch")
	}
	if want := "expected markup to match snapshot card, but it differs at line 2"; result.Message != want {
		t.Errorf("expected message %q, got %q", want, result.Message)
	}
	if result.Expected != markup {
		t.Errorf("expected stored markup, got %q", result.Expected)
	}
	if result.Actual != changed {
		t.Errorf("expected actual markup, got %q", result.Actual)
	}
}

func TestManager_Compare_UpdateExisting(t *testing.T) {
	tmpDir := t.TempDir()
	suiteFile := filepath.Join(tmpDir, "page.domspec.yaml")

	NewManager(true).Compare(suiteFile, "card", markup)

	result := NewManager(true).Compare(suiteFile, "card", "<p></p>")
	if !result.Passed || !result.WasUpdated {
		t.Errorf("expected snapshot to be updated, got: %+v", result)
	}

	result = NewManager(false).Compare(suiteFile, "card", "<p></p>")
	if !result.Passed {
		t.Errorf("expected updated snapshot to match, got: %s", result.Message)
	}
}

func TestManager_Compare_NoSnapshotNoUpdateMode(t *testing.T) {
	tmpDir := t.TempDir()
	suiteFile := filepath.Join(tmpDir, "page.domspec.yaml")

	result := NewManager(false).Compare(suiteFile, "card", markup)

	if result.Passed {
		t.Error("expected failure when the snapshot is missing")
	}
	if !strings.Contains(result.Message, "--update-snapshots") {
		t.Errorf("expected hint about --update-snapshots, got %q", result.Message)
	}
	if _, err := os.Stat(FilePath(suiteFile)); !os.IsNotExist(err) {
		t.Error("expected no snapshot file to be written")
	}
}

func TestManager_Names(t *testing.T) {
	tmpDir := t.TempDir()
	suiteFile := filepath.Join(tmpDir, "page.domspec.yaml")

	manager := NewManager(true)
	manager.Compare(suiteFile, "zeta", "<p></p>")
	manager.Compare(suiteFile, "alpha", "<p></p>")

	names, err := manager.Names(suiteFile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(names, ",") != "alpha,zeta" {
		t.Errorf("expected sorted names, got %v", names)
	}
}

func TestManager_CorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	suiteFile := filepath.Join(tmpDir, "page.domspec.yaml")
	if err := os.MkdirAll(filepath.Dir(FilePath(suiteFile)), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(FilePath(suiteFile), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	result := NewManager(true).Compare(suiteFile, "card", markup)
	if result.Passed || !strings.Contains(result.Message, "failed to load snapshots") {
		t.Errorf("expected load failure, got: %+v", result)
	}
}

func TestFilePath(t *testing.T) {
	tests := []struct {
		suite string
		want  string
	}{
		{"specs/page.domspec.yaml", filepath.Join("specs", SnapshotDir, "page.snap.json")},
		{"specs/page.domspec.yml", filepath.Join("specs", SnapshotDir, "page.snap.json")},
		{"page.DOMSPEC", filepath.Join(".", SnapshotDir, "page.snap.json")},
		{"other.yaml", filepath.Join(".", SnapshotDir, "other.snap.json")},
	}

	for _, tt := range tests {
		if got := FilePath(tt.suite); got != tt.want {
			t.Errorf("FilePath(%q) = %q, want %q", tt.suite, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("\n  <p>  \r\n  </p>\t\n\n")
	if got != "<p>\n  </p>" {
		t.Errorf("unexpected normalized markup %q", got)
	}
}
