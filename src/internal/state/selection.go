package state

import (
	"errors"
	"fmt"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

var (
	// ErrNoReleases is returned when a target is requested before any release check succeeded
	ErrNoReleases = errors.New("no release found")
	// ErrBusy is returned when another task is already running
	ErrBusy = errors.New("an operation is already in progress")
	// ErrIndexOutOfRange is returned by SelectRelease for an index outside the release list
	ErrIndexOutOfRange = errors.New("release index out of range")
)

// SetReleases replaces the release/tag list in one update. The selector is
// moved to selected (clamped) and the downgrade acknowledgement is reset.
func (m *Manager) SetReleases(entries []models.ReleaseAndTag, selected, installed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rec.entries = models.CloneEntries(entries)
	if installed >= len(entries) {
		installed = -1
	}
	m.rec.installedIndex = installed
	m.rec.selection.Index = clamp(selected, len(entries))
	m.rec.selection.DowngradeAccepted = false
}

// Entries returns a copy of the release/tag list
func (m *Manager) Entries() []models.ReleaseAndTag {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CloneEntries(m.rec.entries)
}

// Selection returns the selector state
func (m *Manager) Selection() models.ReleaseSelection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.selection
}

// SetSelectionOpen opens or closes the release selector
func (m *Manager) SetSelectionOpen(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.selection.Open = open
}

// SetSelectionIndex moves the selector to index, clamped into the list.
// Moving to a different entry withdraws a previous downgrade acknowledgement.
func (m *Manager) SetSelectionIndex(index int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveTo(index)
}

// MoveSelection moves the selector by delta entries, clamped into the list
func (m *Manager) MoveSelection(delta int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveTo(m.rec.selection.Index + delta)
}

func (m *Manager) moveTo(index int) int {
	index = clamp(index, len(m.rec.entries))
	if index != m.rec.selection.Index {
		m.rec.selection.DowngradeAccepted = false
	}
	m.rec.selection.Index = index
	return index
}

// SelectionChange lists selector edits applied in one update. Nil fields are
// left unchanged. AcceptDowngrade is applied after the move, so a move in the
// same change does not withdraw it.
type SelectionChange struct {
	Open            *bool
	Index           *int
	Move            *int
	AcceptDowngrade *bool
}

// UpdateSelection applies change unless a task is running, in which case it
// changes nothing and returns ErrBusy.
func (m *Manager) UpdateSelection(change SelectionChange) (models.ReleaseSelection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rec.busy {
		return m.rec.selection, ErrBusy
	}

	if change.Open != nil {
		m.rec.selection.Open = *change.Open
	}
	if change.Index != nil {
		m.moveTo(*change.Index)
	}
	if change.Move != nil {
		m.moveTo(m.rec.selection.Index + *change.Move)
	}
	if change.AcceptDowngrade != nil {
		m.rec.selection.DowngradeAccepted = *change.AcceptDowngrade
	}
	return m.rec.selection, nil
}

// SelectRelease opens the selector on entry index. Unlike SetSelectionIndex
// it does not clamp: an index outside the list returns ErrIndexOutOfRange.
func (m *Manager) SelectRelease(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rec.entries) == 0 {
		return ErrNoReleases
	}
	if index < 0 || index >= len(m.rec.entries) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, len(m.rec.entries)-1)
	}

	m.rec.selection.Open = true
	m.moveTo(index)
	return nil
}

// AcceptDowngrade records the user's acknowledgement of the downgrade warning
func (m *Manager) AcceptDowngrade(accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.selection.DowngradeAccepted = accepted
}

// Target is the release a firmware update would install
type Target struct {
	Entry models.ReleaseAndTag
	Index int
	// Downgrade is true when Entry is older than the installed release
	Downgrade         bool
	DowngradeAccepted bool
}

// UpdateTarget returns the selected entry when the selector is open, the
// newest entry otherwise.
func (m *Manager) UpdateTarget() (Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rec.entries) == 0 {
		return Target{}, ErrNoReleases
	}

	index := 0
	if m.rec.selection.Open {
		index = clamp(m.rec.selection.Index, len(m.rec.entries))
	}

	e := m.rec.entries[index]
	return Target{
		Entry:             models.ReleaseAndTag{Release: e.Release.Clone(), Tag: e.Tag},
		Index:             index,
		Downgrade:         m.rec.installedIndex >= 0 && index > m.rec.installedIndex,
		DowngradeAccepted: m.rec.selection.DowngradeAccepted,
	}, nil
}

func clamp(index, n int) int {
	switch {
	case n == 0 || index < 0:
		return 0
	case index > n-1:
		return n - 1
	}
	return index
}
