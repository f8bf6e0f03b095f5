package github

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(models.GitHubConfig{APIURL: srv.URL})
}

func TestFetchLatestRelease(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/LanderN/nextui-updater-pak/releases/latest", r.URL.Path)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"tag_name":"2.0.1","published_at":"2025-01-02T03:04:05Z","assets":[
			{"name":"updater.zip","url":"https://api.example/assets/1","browser_download_url":"https://dl.example/updater.zip","size":42}]}`))
	}))

	release, err := client.FetchLatestRelease(context.Background(), "LanderN/nextui-updater-pak")
	require.NoError(t, err)
	assert.Equal(t, "2.0.1", release.TagName)
	require.Len(t, release.Assets, 1)
	assert.Equal(t, "https://api.example/assets/1", release.Assets[0].URL)
	assert.Equal(t, int64(42), release.Assets[0].Size)
	require.NotNil(t, release.PublishedAt)
	assert.Equal(t, 2025, release.PublishedAt.Year())
}

func TestFetchReleasesPreservesOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"tag_name":"v3","assets":[]},{"tag_name":"v2","assets":[]},{"tag_name":"v1","assets":[]}]`))
	}))

	releases, err := client.FetchReleases(context.Background(), "LoveRetro/NextUI")
	require.NoError(t, err)
	require.Len(t, releases, 3)
	assert.Equal(t, "v3", releases[0].TagName)
	assert.Equal(t, "v1", releases[2].TagName)
}

func TestFetchTags(t *testing.T) {
	t.Run("decodes commit sha", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/LoveRetro/NextUI/tags", r.URL.Path)
			w.Write([]byte(`[{"name":"v1","commit":{"sha":"abcdef123"}}]`))
		}))

		tags, err := client.FetchTags(context.Background(), "LoveRetro/NextUI")
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "abcdef123", tags[0].Commit.SHA)
	})

	t.Run("empty list is not an error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))

		tags, err := client.FetchTags(context.Background(), "LoveRetro/NextUI")
		require.NoError(t, err)
		assert.Empty(t, tags)
	})
}

func TestFetchErrors(t *testing.T) {
	t.Run("non-success status", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusForbidden)
		}))

		_, err := client.FetchTags(context.Background(), "LoveRetro/NextUI")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})

	t.Run("unexpected shape", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message":"not a list"}`))
		}))

		_, err := client.FetchReleases(context.Background(), "LoveRetro/NextUI")
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("connection failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		client := NewClient(models.GitHubConfig{APIURL: srv.URL})

		_, err := client.FetchLatestRelease(context.Background(), "LoveRetro/NextUI")
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
	})
}

func TestDownloadKnownLength(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, ChunkSize*3+123)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/octet-stream", r.Header.Get("Accept"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))

	var reports []float64
	data, err := client.Download(context.Background(), client.baseURL+"/asset", func(p float64) {
		reports = append(reports, p)
	})
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	require.NotEmpty(t, reports)
	assert.Equal(t, 1.0, reports[len(reports)-1])
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i], reports[i-1])
	}
}

func TestDownloadUnknownLength(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for i := 0; i < 4; i++ {
			w.Write(bytes.Repeat([]byte{byte(i)}, 1000))
			flusher.Flush()
		}
	}))

	called := false
	data, err := client.Download(context.Background(), client.baseURL+"/asset", func(float64) {
		called = true
	})
	require.NoError(t, err)
	assert.Len(t, data, 4000)
	assert.False(t, called)
}

func TestDownloadStatusError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Download(context.Background(), client.baseURL+"/missing", nil)
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}
