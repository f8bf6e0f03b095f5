package update

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/extract"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/version"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// SelfUpdate replaces the updater with the newest release of its own
// repository. It returns nil when no newer release exists. On success it
// does not return: the process exits with process.ExitRestartRequired.
//
// The running executable is renamed aside before extraction and renamed
// back if extraction fails. A failed rename back yields *RollbackError.
func (m *Manager) SelfUpdate(ctx context.Context) error {
	m.state.StartOperation("Fetching latest updater release...")

	repo := m.config.Updater.Repository
	release, err := m.client.FetchLatestRelease(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to fetch latest updater release: %w", err)
	}

	logger := log.WithFields(log.Fields{
		"repo":      repo,
		"available": release.TagName,
		"installed": m.buildVersion,
	})

	newer, err := version.IsNewer(release.TagName, m.buildVersion)
	if err != nil {
		return err
	}
	if !newer {
		logger.Info("No updater update available")
		return nil
	}
	if len(release.Assets) == 0 {
		return ErrNoAsset
	}

	asset := release.Assets[0]
	logger.WithField("asset", asset.Name).Info("New updater version available")

	m.state.SetStep(downloadLabel("updater", asset), models.Indeterminate())
	data, err := m.client.Download(ctx, asset.URL, m.state.UpdateProgress)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", asset.Name, err)
	}

	m.state.SetStep(fmt.Sprintf("Extracting NextUI Updater %s...", release.TagName), models.Indeterminate())

	exe, err := m.exe()
	if err != nil {
		return &BackupError{Path: "(executable)", Err: err}
	}
	backup := exe + m.config.Updater.BackupSuffix
	if err := os.Rename(exe, backup); err != nil {
		return &BackupError{Path: exe, Err: err}
	}
	logger.Debugf("Moved %s to %s", exe, backup)

	if err := extract.Extract(data, m.config.Root, extract.AllowAll, m.state.UpdateProgress); err != nil {
		if rerr := os.Rename(backup, exe); rerr != nil {
			return &RollbackError{Path: exe, BackupPath: backup, ExtractErr: err, Err: rerr}
		}
		logger.Warnf("Extraction failed, restored %s", exe)
		return fmt.Errorf("failed to extract update package: %w", err)
	}

	logger.Info("Self-update extracted, restarting")
	m.state.SetStep("Self-update success! Restarting updater...", models.Indeterminate())
	m.sleep(m.config.Pauses.SelfUpdate)
	m.exiter(process.ExitRestartRequired)
	return nil
}

func downloadLabel(what string, asset models.Asset) string {
	if asset.Size > 0 {
		return fmt.Sprintf("Downloading %s (%s)...", what, humanize.Bytes(uint64(asset.Size)))
	}
	return fmt.Sprintf("Downloading %s...", what)
}
