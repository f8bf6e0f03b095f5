package models

import (
	"math"
	"time"
)

// ProgressKind distinguishes unknown-duration work from work with a known fraction
type ProgressKind string

const (
	ProgressIndeterminate ProgressKind = "indeterminate"
	ProgressDeterminate   ProgressKind = "determinate"
)

// Progress represents how far an operation has come.
// Fraction is only meaningful for ProgressDeterminate and is kept in [0, 1].
type Progress struct {
	Kind     ProgressKind `json:"kind"`
	Fraction float64      `json:"fraction"`
}

// Indeterminate returns a progress value of unknown duration
func Indeterminate() Progress {
	return Progress{Kind: ProgressIndeterminate}
}

// Determinate returns a progress value clamped into [0, 1]
func Determinate(fraction float64) Progress {
	switch {
	case fraction < 0 || math.IsNaN(fraction):
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	return Progress{Kind: ProgressDeterminate, Fraction: fraction}
}

// Operation describes the background step currently in flight
type Operation struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Progress  Progress  `json:"progress"`
	StartedAt time.Time `json:"started_at"`
}

// ReleaseSelection is the observer's position in the release/tag list
type ReleaseSelection struct {
	Index             int  `json:"index"`
	Open              bool `json:"open"`
	DowngradeAccepted bool `json:"downgrade_accepted"`
}

// Snapshot is a copy of the shared operation state taken under lock
type Snapshot struct {
	InstalledVersion string           `json:"installed_version"`
	Operation        *Operation       `json:"operation,omitempty"`
	Error            string           `json:"error,omitempty"`
	Hint             string           `json:"hint,omitempty"`
	LatestRelease    *Release         `json:"latest_release,omitempty"`
	LatestTag        *Tag             `json:"latest_tag,omitempty"`
	Entries          []ReleaseAndTag  `json:"entries,omitempty"`
	Selection        ReleaseSelection `json:"selection"`
	InstalledIndex   int              `json:"installed_index"`
	UpToDate         bool             `json:"up_to_date"`
	Busy             bool             `json:"busy"`
	ShouldQuit       bool             `json:"should_quit"`
}

// HistoryKind names the kind of task a journal record describes
type HistoryKind string

const (
	HistoryCheck       HistoryKind = "check"
	HistorySelfUpdate  HistoryKind = "self_update"
	HistoryQuickUpdate HistoryKind = "quick_update"
	HistoryFullUpdate  HistoryKind = "full_update"
)

// HistoryRecord is one terminal outcome kept in the update journal
type HistoryRecord struct {
	ID         string      `json:"id"`
	Kind       HistoryKind `json:"kind"`
	Tag        string      `json:"tag,omitempty"`
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}
