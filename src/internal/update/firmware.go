package update

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/extract"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/state"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// UpdateFirmware downloads the targeted release, extracts it over the root
// and reboots. A quick update only touches the configured top-level paths;
// a full update extracts everything except ROM folders that already exist.
// It returns the tag that was targeted.
func (m *Manager) UpdateFirmware(ctx context.Context, full bool) (string, error) {
	m.state.StartOperation("Downloading update...")

	target, err := m.target()
	if err != nil {
		return "", err
	}
	tag := target.Entry.Tag.Name

	asset, err := SelectAsset(target.Entry.Release.Assets, full)
	if err != nil {
		return tag, err
	}

	logger := log.WithFields(log.Fields{
		"tag":   tag,
		"asset": asset.Name,
		"full":  full,
	})
	logger.Infof("Downloading from %s", asset.URL)

	m.state.SetStep(downloadLabel(asset.Name, asset), models.Indeterminate())
	data, err := m.client.Download(ctx, asset.URL, m.state.UpdateProgress)
	if err != nil {
		return tag, fmt.Errorf("failed to download %s: %w", asset.Name, err)
	}

	m.state.SetStep(fmt.Sprintf("Extracting %s...\nPlease wait...", asset.Name), models.Indeterminate())

	filter := QuickFilter(m.config.Firmware.QuickPaths)
	if full {
		filter = FullFilter(m.config.Root, m.config.Firmware.RomsDir)
	}
	if err := extract.Extract(data, m.config.Root, filter, m.state.UpdateProgress); err != nil {
		return tag, err
	}
	logger.Info("Extraction complete")

	m.state.SetStep("Update complete, preparing to reboot...", models.Indeterminate())
	m.sleep(m.config.Pauses.Reboot)

	m.state.SetStep("Rebooting system...", models.Indeterminate())
	if err := m.rebooter.Reboot(); err != nil {
		return tag, err
	}
	return tag, nil
}

func (m *Manager) target() (state.Target, error) {
	target, err := m.state.UpdateTarget()
	if errors.Is(err, state.ErrNoReleases) {
		return target, ErrNoRelease
	}
	if err != nil {
		return target, err
	}
	if target.Downgrade && !target.DowngradeAccepted {
		return target, ErrDowngradeNotAccepted
	}
	return target, nil
}
