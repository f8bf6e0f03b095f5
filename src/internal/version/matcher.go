package version

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// Source lists releases and tags of a repository
type Source interface {
	FetchReleases(ctx context.Context, repo string) ([]models.Release, error)
	FetchTags(ctx context.Context, repo string) ([]models.Tag, error)
}

// Result is the outcome of correlating releases with tags
type Result struct {
	// Entries is ordered like the host's release list, newest first
	Entries []models.ReleaseAndTag
	// Selected is the index the release selector should start at
	Selected int
	// Installed is the index of the installed release, or -1 when unknown
	Installed int
}

// Step identifies the listing Resolve is about to fetch
type Step int

const (
	StepReleases Step = iota
	StepTags
)

// Matcher resolves a repository's releases against its tags
type Matcher struct {
	source Source
	onStep func(Step)
}

// NewMatcher creates a new matcher backed by source
func NewMatcher(source Source) *Matcher {
	return &Matcher{source: source}
}

// OnStep registers fn to be called before each listing is fetched
func (m *Matcher) OnStep(fn func(Step)) {
	m.onStep = fn
}

func (m *Matcher) step(s Step) {
	if m.onStep != nil {
		m.onStep(s)
	}
}

// Resolve fetches releases and tags for repo and pairs them up.
// See Match for the pairing rules.
func (m *Matcher) Resolve(ctx context.Context, repo, installed string) (*Result, error) {
	m.step(StepReleases)
	releases, err := m.source.FetchReleases(ctx, repo)
	if err != nil {
		return nil, &FetchError{Resource: "releases", Err: err}
	}
	if len(releases) == 0 {
		return nil, ErrNoReleases
	}

	m.step(StepTags)
	tags, err := m.source.FetchTags(ctx, repo)
	if err != nil {
		return nil, &FetchError{Resource: "tags", Err: err}
	}

	log.WithFields(log.Fields{
		"repo":     repo,
		"releases": len(releases),
		"tags":     len(tags),
	}).Debug("resolving releases against tags")

	return Match(releases, tags, installed)
}

// Match pairs each release, in order, with the tag of the same name.
//
// A tag is used at most once. The newest release must have a tag; older
// releases without one are dropped. The selected index points at the pair
// whose commit SHA starts with installed, or 0 when there is none. When
// several pairs match, the oldest one wins. An empty installed version never
// matches.
func Match(releases []models.Release, tags []models.Tag, installed string) (*Result, error) {
	if len(releases) == 0 {
		return nil, ErrNoReleases
	}
	if len(tags) == 0 {
		return nil, ErrNoTags
	}

	pool := make([]models.Tag, len(tags))
	copy(pool, tags)

	result := &Result{
		Entries:   make([]models.ReleaseAndTag, 0, len(releases)),
		Installed: -1,
	}

	for i, release := range releases {
		idx := indexOfTag(pool, release.TagName)
		if idx < 0 {
			if i == 0 {
				return nil, &NoMatchingTagError{TagName: release.TagName}
			}
			log.Debugf("dropping release %q without matching tag", release.TagName)
			continue
		}

		tag := pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)

		result.Entries = append(result.Entries, models.ReleaseAndTag{Release: release.Clone(), Tag: tag})
		if installed != "" && strings.HasPrefix(tag.Commit.SHA, installed) {
			result.Installed = len(result.Entries) - 1
		}
	}

	if result.Installed >= 0 {
		result.Selected = result.Installed
	}

	return result, nil
}

func indexOfTag(tags []models.Tag, name string) int {
	for i, t := range tags {
		if t.Name == name {
			return i
		}
	}
	return -1
}
