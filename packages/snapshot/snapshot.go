// Package snapshot stores the rendered markup of test subjects and compares
// later runs against it.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	// SnapshotDir is the directory name for storing snapshots
	SnapshotDir = "__snapshots__"
	// SnapshotExt is the file extension for snapshot files
	SnapshotExt = ".snap.json"
)

// Manager handles snapshot storage and comparison. It is safe for use by
// tests running in parallel.
type Manager struct {
	updateMode bool

	mu            sync.Mutex
	snapshotsRead map[string]map[string]string // file -> {test -> markup}
}

// NewManager creates a new snapshot manager. In update mode missing and
// mismatching snapshots are written instead of failing.
func NewManager(updateMode bool) *Manager {
	return &Manager{
		updateMode:    updateMode,
		snapshotsRead: make(map[string]map[string]string),
	}
}

// UpdateMode reports whether snapshots are rewritten on mismatch.
func (m *Manager) UpdateMode() bool {
	return m.updateMode
}

// Result represents the result of a snapshot comparison.
type Result struct {
	Passed     bool
	Message    string
	Expected   string
	Actual     string
	IsNew      bool
	WasUpdated bool
}

// Compare compares markup against the snapshot stored for testName in the
// snapshot file belonging to suiteFile.
func (m *Manager) Compare(suiteFile, testName, markup string) *Result {
	actual := Normalize(markup)
	result := &Result{
		Actual: actual,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshotFile := FilePath(suiteFile)

	snapshots, err := m.loadSnapshots(snapshotFile)
	if err != nil {
		result.Message = fmt.Sprintf("failed to load snapshots: %v", err)
		return result
	}

	expected, exists := snapshots[testName]
	if !exists {
		if !m.updateMode {
			result.Message = "snapshot does not exist (run with --update-snapshots to create)"
			return result
		}
		snapshots[testName] = actual
		if err := m.saveSnapshots(snapshotFile, snapshots); err != nil {
			result.Message = fmt.Sprintf("failed to save snapshot: %v", err)
			return result
		}
		result.Passed = true
		result.IsNew = true
		result.Expected = actual
		result.Message = "new snapshot created"
		return result
	}

	result.Expected = expected
	if expected == actual {
		result.Passed = true
		return result
	}

	if m.updateMode {
		snapshots[testName] = actual
		if err := m.saveSnapshots(snapshotFile, snapshots); err != nil {
			result.Message = fmt.Sprintf("failed to update snapshot: %v", err)
			return result
		}
		result.Passed = true
		result.WasUpdated = true
		result.Message = "snapshot updated"
		return result
	}

	result.Message = fmt.Sprintf("expected markup to match snapshot %s, but it differs at line %d", testName, firstDifference(expected, actual))
	return result
}

// Names returns the snapshot names stored for suiteFile, sorted.
func (m *Manager) Names(suiteFile string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshots, err := m.loadSnapshots(FilePath(suiteFile))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(snapshots))
	for name := range snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// FilePath returns the snapshot file for a suite file:
// specs/page.domspec.yaml -> specs/__snapshots__/page.snap.json
func FilePath(suiteFile string) string {
	dir := filepath.Dir(suiteFile)
	base := filepath.Base(suiteFile)
	if i := strings.Index(strings.ToLower(base), ".domspec"); i > 0 {
		base = base[:i]
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Join(dir, SnapshotDir, base+SnapshotExt)
}

// Normalize trims surrounding whitespace and trailing spaces on each line so
// editor reformatting of a snapshot file does not cause mismatches.
func Normalize(markup string) string {
	lines := strings.Split(strings.TrimSpace(markup), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}

// firstDifference returns the 1-based line where a and b first differ.
func firstDifference(a, b string) int {
	al := strings.Split(a, "\n")
	bl := strings.Split(b, "\n")
	for i := 0; i < len(al) && i < len(bl); i++ {
		if al[i] != bl[i] {
			return i + 1
		}
	}
	return min(len(al), len(bl)) + 1
}

// loadSnapshots loads snapshots from a file.
func (m *Manager) loadSnapshots(path string) (map[string]string, error) {
	// Check cache first
	if cached, ok := m.snapshotsRead[path]; ok {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			snapshots := make(map[string]string)
			m.snapshotsRead[path] = snapshots
			return snapshots, nil
		}
		return nil, err
	}

	var snapshots map[string]string
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if snapshots == nil {
		snapshots = make(map[string]string)
	}

	m.snapshotsRead[path] = snapshots
	return snapshots, nil
}

// saveSnapshots saves snapshots to a file.
func (m *Manager) saveSnapshots(path string, snapshots map[string]string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// encoding/json sorts map keys, so files diff cleanly
	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return err
	}

	m.snapshotsRead[path] = snapshots

	return os.WriteFile(path, append(data, '\n'), 0644)
}
