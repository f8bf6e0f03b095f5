package update

import (
	"errors"
	"fmt"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/state"
)

var (
	// ErrNoAsset is returned when a release has no downloadable asset
	ErrNoAsset = errors.New("no assets found")
	// ErrNoRelease is returned when an update is requested before a successful check
	ErrNoRelease = errors.New("no release found")
	// ErrBusy is returned when another task is already running
	ErrBusy = state.ErrBusy
	// ErrDowngradeNotAccepted is returned when the target is older than the installed release
	ErrDowngradeNotAccepted = errors.New("selected release is older than the installed one; accept the downgrade first")
)

// BackupError is returned when the running executable could not be moved aside.
// No file has been extracted when it is returned.
type BackupError struct {
	Path string
	Err  error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("failed to back up %s: %v", e.Path, e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// RollbackError is returned when a failed self-update could not restore the
// backed up executable. The updater binary may be missing afterwards.
type RollbackError struct {
	Path       string
	BackupPath string
	// ExtractErr is the failure that triggered the rollback
	ExtractErr error
	Err        error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("failed to restore %s from %s after extraction failed (%v): %v", e.Path, e.BackupPath, e.ExtractErr, e.Err)
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}
