// Package state holds the operation state shared between the background
// update worker and the observer that renders it.
//
// Every accessor copies values out under the lock; no method returns a
// reference into the guarded record, so an observer never holds the lock
// across a rendering pass.
package state

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

type record struct {
	installedVersion string
	operation        *models.Operation
	err              string
	hint             string
	entries          []models.ReleaseAndTag
	selection        models.ReleaseSelection
	installedIndex   int
	busy             bool
	shouldQuit       bool
}

// Manager guards the shared operation state
type Manager struct {
	mu  sync.Mutex
	rec record

	listenersMu sync.Mutex
	listeners   []func(busy bool)
}

// NewManager creates an empty state with no releases and nothing in flight
func NewManager() *Manager {
	return &Manager{rec: record{installedIndex: -1}}
}

// Snapshot returns a deep copy of the whole state
func (m *Manager) Snapshot() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := models.Snapshot{
		InstalledVersion: m.rec.installedVersion,
		Error:            m.rec.err,
		Hint:             m.rec.hint,
		Entries:          models.CloneEntries(m.rec.entries),
		Selection:        m.rec.selection,
		InstalledIndex:   m.rec.installedIndex,
		Busy:             m.rec.busy,
		ShouldQuit:       m.rec.shouldQuit,
	}
	if m.rec.operation != nil {
		op := *m.rec.operation
		s.Operation = &op
	}
	if len(m.rec.entries) > 0 {
		latest := m.rec.entries[0].Release.Clone()
		tag := m.rec.entries[0].Tag
		s.LatestRelease = &latest
		s.LatestTag = &tag
		s.UpToDate = m.rec.installedVersion != "" && strings.HasPrefix(tag.Commit.SHA, m.rec.installedVersion)
	}
	return s
}

// InstalledVersion returns the installed firmware commit prefix
func (m *Manager) InstalledVersion() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.installedVersion
}

// SetInstalledVersion records the installed firmware commit prefix
func (m *Manager) SetInstalledVersion(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.installedVersion = v
}

// CurrentOperation returns a copy of the in-flight operation, if any
func (m *Manager) CurrentOperation() (models.Operation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec.operation == nil {
		return models.Operation{}, false
	}
	return *m.rec.operation, true
}

// Error returns the error currently shown to the user
func (m *Manager) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.err
}

// StartOperation begins a step of unknown duration and clears any previous error
func (m *Manager) StartOperation(label string) {
	m.start(label, models.Indeterminate())
}

// StartDeterminateOperation begins a step whose progress starts at 0
func (m *Manager) StartDeterminateOperation(label string) {
	m.start(label, models.Determinate(0))
}

func (m *Manager) start(label string, p models.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.operation = &models.Operation{
		ID:        uuid.New().String(),
		Label:     label,
		Progress:  p,
		StartedAt: time.Now(),
	}
	m.rec.err = ""
}

// SetStep relabels the current step and sets its progress in one update.
// It starts a new operation when none is in flight.
func (m *Manager) SetStep(label string, p models.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec.operation == nil {
		m.rec.operation = &models.Operation{ID: uuid.New().String(), StartedAt: time.Now()}
	}
	m.rec.operation.Label = label
	m.rec.operation.Progress = p
}

// UpdateProgress sets a determinate fraction on the current operation
func (m *Manager) UpdateProgress(fraction float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec.operation == nil {
		return
	}
	m.rec.operation.Progress = models.Determinate(fraction)
}

// FinishOperation clears the in-flight operation
func (m *Manager) FinishOperation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.operation = nil
}

// FailOperation clears the in-flight operation and shows msg
func (m *Manager) FailOperation(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.operation = nil
	m.rec.err = msg
}

// ClearError removes the error shown to the user
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.err = ""
}

// SetHint sets or clears (with "") the observer hint text
func (m *Manager) SetHint(hint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.hint = hint
}

// SetShouldQuit records that the observer asked to quit
func (m *Manager) SetShouldQuit(quit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.shouldQuit = quit
}

// ShouldQuit reports whether the observer asked to quit
func (m *Manager) ShouldQuit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.shouldQuit
}
