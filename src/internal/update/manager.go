package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/state"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/version"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// ReleaseSource is the release host the sequencers talk to
type ReleaseSource interface {
	version.Source
	FetchLatestRelease(ctx context.Context, repo string) (*models.Release, error)
	Download(ctx context.Context, url string, progress func(float64)) ([]byte, error)
}

// Journal records the outcome of every task
type Journal interface {
	Append(rec models.HistoryRecord) (models.HistoryRecord, error)
}

// Manager runs the self-update, release check and firmware update tasks
// against the shared operation state
type Manager struct {
	config       *models.Config
	client       ReleaseSource
	matcher      *version.Matcher
	state        *state.Manager
	journal      Journal
	buildVersion string

	exe      func() (string, error)
	rebooter process.Rebooter
	exiter   process.Exiter
	sleep    func(time.Duration)

	wg sync.WaitGroup
}

// NewManager creates a new update manager. journal may be nil.
func NewManager(config *models.Config, client ReleaseSource, st *state.Manager, journal Journal, buildVersion string) *Manager {
	m := &Manager{
		config:       config,
		client:       client,
		matcher:      version.NewMatcher(client),
		state:        st,
		journal:      journal,
		buildVersion: buildVersion,
		exe:          os.Executable,
		rebooter:     process.NewCommandRebooter(),
		exiter:       process.OSExit,
		sleep:        time.Sleep,
	}

	// SetStep keeps an error reported just before an automatic re-check
	m.matcher.OnStep(func(s version.Step) {
		switch s {
		case version.StepReleases:
			m.state.SetStep("Fetching latest NextUI releases...", models.Indeterminate())
		case version.StepTags:
			m.state.SetStep("Fetching latest NextUI tags...", models.Indeterminate())
		}
	})

	return m
}

// Startup runs the self-update and then the first release check on the
// calling goroutine. A successful self-update exits the process.
func (m *Manager) Startup(ctx context.Context) error {
	if !m.state.TryBegin() {
		return ErrBusy
	}
	defer m.state.End()

	m.startup(ctx)
	return nil
}

// BeginStartup takes the task slot before returning and runs the startup
// sequence in the background. Calls that arrive after it returns, such as
// a check requested over the API, get ErrBusy until startup has finished.
func (m *Manager) BeginStartup(ctx context.Context) error {
	if !m.state.TryBegin() {
		return ErrBusy
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.state.End()
		m.startup(ctx)
	}()
	return nil
}

func (m *Manager) startup(ctx context.Context) {
	m.LoadInstalledVersion()

	if m.config.Updater.SkipSelfUpdate {
		log.Info("Self-update disabled by configuration")
	} else {
		m.runSelfUpdate(ctx)
	}

	m.runCheck(ctx)
}

// LoadInstalledVersion reads the version marker into the shared state
func (m *Manager) LoadInstalledVersion() string {
	installed := version.ReadInstalledVersion(m.versionFilePath())
	m.state.SetInstalledVersion(installed)
	log.Infof("Installed NextUI version: %q", installed)
	return installed
}

// StartCheck re-runs the release check in the background
func (m *Manager) StartCheck() error {
	if !m.state.TryBegin() {
		return ErrBusy
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.state.End()
		m.state.ClearError()
		m.runCheck(context.Background())
	}()
	return nil
}

// StartUpdate installs the targeted firmware release in the background.
// A missing release or an unaccepted downgrade is reported before any task starts.
func (m *Manager) StartUpdate(full bool) error {
	if !m.state.TryBegin() {
		return ErrBusy
	}

	if _, err := m.target(); err != nil {
		m.state.End()
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.state.End()
		m.runUpdate(context.Background(), full)
	}()
	return nil
}

// Wait blocks until every background task started by this manager returned
func (m *Manager) Wait() {
	m.wg.Wait()
}

// CheckReleases resolves the firmware releases against their tags and
// stores the result in the shared state
func (m *Manager) CheckReleases(ctx context.Context) error {
	result, err := m.matcher.Resolve(ctx, m.config.Firmware.Repository, m.state.InstalledVersion())
	if err != nil {
		return err
	}

	m.state.SetReleases(result.Entries, result.Selected, result.Installed)
	log.WithFields(log.Fields{
		"latest":    result.Entries[0].Release.TagName,
		"entries":   len(result.Entries),
		"installed": result.Installed,
	}).Info("Release check complete")
	return nil
}

func (m *Manager) runSelfUpdate(ctx context.Context) {
	started := time.Now()
	err := m.SelfUpdate(ctx)
	m.record(models.HistorySelfUpdate, m.buildVersion, started, err)

	var rollbackErr *RollbackError
	switch {
	case err == nil:
		m.state.FinishOperation()
	case errors.As(err, &rollbackErr):
		log.Errorf("Self-update rollback failed: %v", err)
		m.state.FailOperation(fmt.Sprintf("FATAL: %v", err))
		m.exiter(1)
	default:
		log.Errorf("Self-update failed: %v", err)
		m.state.FailOperation(fmt.Sprintf("Self-update failed: %v", err))
	}
}

func (m *Manager) runCheck(ctx context.Context) {
	started := time.Now()
	err := m.CheckReleases(ctx)

	tag := ""
	if entries := m.state.Entries(); err == nil && len(entries) > 0 {
		tag = entries[0].Tag.Name
	}
	m.record(models.HistoryCheck, tag, started, err)

	if err != nil {
		msg := checkFailureMessage(err)
		log.Error(msg)
		m.state.FailOperation(msg)
		return
	}
	m.state.FinishOperation()
}

func (m *Manager) runUpdate(ctx context.Context, full bool) {
	kind := models.HistoryQuickUpdate
	if full {
		kind = models.HistoryFullUpdate
	}

	started := time.Now()
	tag, err := m.UpdateFirmware(ctx, full)
	m.record(kind, tag, started, err)
	if err == nil {
		return
	}

	log.Errorf("Update failed: %v", err)
	m.state.FailOperation(fmt.Sprintf("Update failed: %v", err))

	// refresh the release list so the selection does not point at a failed attempt
	m.runCheck(ctx)
}

func (m *Manager) record(kind models.HistoryKind, tag string, started time.Time, err error) {
	if m.journal == nil {
		return
	}

	rec := models.HistoryRecord{
		Kind:       kind,
		Tag:        tag,
		Success:    err == nil,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if _, err := m.journal.Append(rec); err != nil {
		log.Warnf("Failed to record %s outcome: %v", kind, err)
	}
}

func (m *Manager) versionFilePath() string {
	if filepath.IsAbs(m.config.Firmware.VersionFile) {
		return m.config.Firmware.VersionFile
	}
	return filepath.Join(m.config.Root, m.config.Firmware.VersionFile)
}

func checkFailureMessage(err error) string {
	var fetchErr *version.FetchError
	var noMatch *version.NoMatchingTagError
	switch {
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("%s fetch failed: %v", capitalize(fetchErr.Resource), fetchErr.Err)
	case errors.As(err, &noMatch):
		return fmt.Sprintf("Latest release has no matching tag: %q", noMatch.TagName)
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
