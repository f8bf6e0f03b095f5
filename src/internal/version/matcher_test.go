package version

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

func rel(tag string) models.Release {
	return models.Release{TagName: tag, Assets: []models.Asset{{Name: tag + "-base.zip", URL: "https://example/" + tag}}}
}

func tag(name, sha string) models.Tag {
	return models.Tag{Name: name, Commit: models.Commit{SHA: sha}}
}

func TestMatchPairsByName(t *testing.T) {
	releases := []models.Release{rel("v3"), rel("v2"), rel("v1")}
	tags := []models.Tag{tag("v1", "111aaa"), tag("v3", "333ccc"), tag("v2", "222bbb")}

	result, err := Match(releases, tags, "222b")
	require.NoError(t, err)
	require.Len(t, result.Entries, 3)

	for _, e := range result.Entries {
		assert.Equal(t, e.Release.TagName, e.Tag.Name)
	}
	assert.Equal(t, 1, result.Selected)
	assert.Equal(t, 1, result.Installed)
}

func TestMatchConsumesTagsOnce(t *testing.T) {
	releases := []models.Release{rel("v2"), rel("v2"), rel("v1")}
	tags := []models.Tag{tag("v2", "222"), tag("v1", "111")}

	result, err := Match(releases, tags, "")
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "v2", result.Entries[0].Tag.Name)
	assert.Equal(t, "v1", result.Entries[1].Tag.Name)

	// caller's slice is untouched
	assert.Equal(t, []models.Tag{tag("v2", "222"), tag("v1", "111")}, tags)
}

func TestMatchNewestWithoutTagFails(t *testing.T) {
	releases := []models.Release{rel("v3"), rel("v2")}
	tags := []models.Tag{tag("v2", "222")}

	_, err := Match(releases, tags, "222")
	var noMatch *NoMatchingTagError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, "v3", noMatch.TagName)
}

func TestMatchDropsOlderReleasesWithoutTag(t *testing.T) {
	releases := []models.Release{rel("v3"), rel("legacy"), rel("v1")}
	tags := []models.Tag{tag("v3", "333"), tag("v1", "111")}

	result, err := Match(releases, tags, "")
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "v1", result.Entries[1].Release.TagName)
}

func TestMatchSelection(t *testing.T) {
	releases := []models.Release{rel("v2"), rel("v1")}
	tags := []models.Tag{tag("v2", "abcdef0123"), tag("v1", "0123456789")}

	t.Run("prefix match", func(t *testing.T) {
		result, err := Match(releases, tags, "0123456")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Selected)
	})

	t.Run("no match selects newest", func(t *testing.T) {
		result, err := Match(releases, tags, "ffff")
		require.NoError(t, err)
		assert.Equal(t, 0, result.Selected)
		assert.Equal(t, -1, result.Installed)
	})

	t.Run("ambiguous prefix selects the last match", func(t *testing.T) {
		ambiguous := []models.Tag{tag("v2", "0123aaaa"), tag("v1", "0123bbbb")}
		result, err := Match(releases, ambiguous, "0123")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Selected)
		assert.Equal(t, 1, result.Installed)
	})

	t.Run("empty installed version matches nothing", func(t *testing.T) {
		result, err := Match(releases, tags, "")
		require.NoError(t, err)
		assert.Equal(t, 0, result.Selected)
		assert.Equal(t, -1, result.Installed)
	})
}

func TestMatchEmptyInputs(t *testing.T) {
	_, err := Match(nil, []models.Tag{tag("v1", "1")}, "")
	assert.ErrorIs(t, err, ErrNoReleases)

	_, err = Match([]models.Release{rel("v1")}, nil, "")
	assert.ErrorIs(t, err, ErrNoTags)
}

type fakeSource struct {
	releases    []models.Release
	tags        []models.Tag
	releasesErr error
	tagsErr     error
	tagCalls    int
}

func (f *fakeSource) FetchReleases(context.Context, string) ([]models.Release, error) {
	return f.releases, f.releasesErr
}

func (f *fakeSource) FetchTags(context.Context, string) ([]models.Tag, error) {
	f.tagCalls++
	return f.tags, f.tagsErr
}

func TestResolve(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		src := &fakeSource{releases: []models.Release{rel("v1")}, tags: []models.Tag{tag("v1", "abc")}}
		result, err := NewMatcher(src).Resolve(context.Background(), "LoveRetro/NextUI", "ab")
		require.NoError(t, err)
		assert.Equal(t, 0, result.Installed)
	})

	t.Run("no releases skips tag lookup", func(t *testing.T) {
		src := &fakeSource{}
		_, err := NewMatcher(src).Resolve(context.Background(), "LoveRetro/NextUI", "")
		assert.ErrorIs(t, err, ErrNoReleases)
		assert.Zero(t, src.tagCalls)
	})

	t.Run("fetch errors are wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		src := &fakeSource{releases: []models.Release{rel("v1")}, tagsErr: boom}
		_, err := NewMatcher(src).Resolve(context.Background(), "LoveRetro/NextUI", "")
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "tags fetch failed")

		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "tags", fetchErr.Resource)
	})

	t.Run("reports steps", func(t *testing.T) {
		src := &fakeSource{releases: []models.Release{rel("v1")}, tags: []models.Tag{tag("v1", "abc")}}
		m := NewMatcher(src)
		var steps []Step
		m.OnStep(func(s Step) { steps = append(steps, s) })

		_, err := m.Resolve(context.Background(), "LoveRetro/NextUI", "")
		require.NoError(t, err)
		assert.Equal(t, []Step{StepReleases, StepTags}, steps)
	})
}

func TestIsNewer(t *testing.T) {
	newer, err := IsNewer("2.0.1", "2.0.0")
	require.NoError(t, err)
	assert.True(t, newer)

	newer, err = IsNewer("2.0.0", "2.0.0")
	require.NoError(t, err)
	assert.False(t, newer)

	newer, err = IsNewer("v1.9.9", "2.0.0")
	require.NoError(t, err)
	assert.False(t, newer)

	_, err = IsNewer("not-a-version", "2.0.0")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "not-a-version", parseErr.Version)
}

func TestReadInstalledVersion(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "version.txt")
	require.NoError(t, os.WriteFile(path, []byte("NextUI v6.1.0\r\n  a1b2c3d  \nextra\n"), 0o644))
	assert.Equal(t, "a1b2c3d", ReadInstalledVersion(path))

	short := filepath.Join(dir, "short.txt")
	require.NoError(t, os.WriteFile(short, []byte("only one line"), 0o644))
	assert.Equal(t, "", ReadInstalledVersion(short))

	assert.Equal(t, "", ReadInstalledVersion(filepath.Join(dir, "missing.txt")))
}
