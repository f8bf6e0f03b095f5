package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name string
	body string
}

func buildZip(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		require.NoError(t, err)
		if e.body != "" {
			_, err = fw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSanitizePath(t *testing.T) {
	cases := map[string]string{
		"MinUI.zip":             "MinUI.zip",
		"trimui/app/run.sh":     "trimui/app/run.sh",
		"../../etc/passwd":      "etc/passwd",
		"/abs/path":             "abs/path",
		`Roms\(GBA)\game.gba`:   "Roms/(GBA)/game.gba",
		"a/./b/../c":            "a/b/c",
		"C:/Windows/system.ini": "Windows/system.ini",
		"..":                    "",
		"Roms/Game Boy (GB)/":   "Roms/Game Boy (GB)",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizePath(in), in)
	}
}

func TestExtractWritesFilesAndDirectories(t *testing.T) {
	root := t.TempDir()
	data := buildZip(t,
		entry{name: "trimui/"},
		entry{name: "trimui/app/run.sh", body: "#!/bin/sh"},
		entry{name: "MinUI.zip", body: "bundle"},
	)

	require.NoError(t, Extract(data, root, AllowAll, nil))

	got, err := os.ReadFile(filepath.Join(root, "trimui", "app", "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh", string(got))

	got, err = os.ReadFile(filepath.Join(root, "MinUI.zip"))
	require.NoError(t, err)
	assert.Equal(t, "bundle", string(got))
}

func TestExtractTruncatesExistingFiles(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "MinUI.zip")
	require.NoError(t, os.WriteFile(target, []byte("a much longer previous bundle"), 0o644))

	require.NoError(t, Extract(buildZip(t, entry{name: "MinUI.zip", body: "new"}), root, nil, nil))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestExtractNeverEscapesRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "sdcard")
	require.NoError(t, os.Mkdir(root, 0o755))

	data := buildZip(t,
		entry{name: "../escaped.txt", body: "x"},
		entry{name: "../../escaped2.txt", body: "y"},
		entry{name: "/absolute.txt", body: "z"},
	)
	require.NoError(t, Extract(data, root, AllowAll, nil))

	_, err := os.Stat(filepath.Join(parent, "escaped.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, filepath.Join(root, "escaped.txt"))
	assert.FileExists(t, filepath.Join(root, "escaped2.txt"))
	assert.FileExists(t, filepath.Join(root, "absolute.txt"))
}

func TestExtractFilterSkipsEntries(t *testing.T) {
	root := t.TempDir()
	data := buildZip(t,
		entry{name: "MinUI.zip", body: "bundle"},
		entry{name: "Extras/skip.me", body: "nope"},
	)

	var seen []string
	filter := func(p string) bool {
		seen = append(seen, p)
		return p == "MinUI.zip"
	}
	require.NoError(t, Extract(data, root, filter, nil))

	assert.Equal(t, []string{"MinUI.zip", "Extras/skip.me"}, seen)
	assert.FileExists(t, filepath.Join(root, "MinUI.zip"))
	assert.NoDirExists(t, filepath.Join(root, "Extras"))
}

func TestExtractProgress(t *testing.T) {
	t.Run("reports every entry", func(t *testing.T) {
		data := buildZip(t,
			entry{name: "a", body: "1"},
			entry{name: "b", body: "2"},
			entry{name: "c", body: "3"},
		)

		var reports []float64
		require.NoError(t, Extract(data, t.TempDir(), func(p string) bool { return p != "b" }, func(p float64) {
			reports = append(reports, p)
		}))
		assert.Equal(t, []float64{0, 0.5, 1}, reports)
	})

	t.Run("single entry reports completion", func(t *testing.T) {
		var reports []float64
		require.NoError(t, Extract(buildZip(t, entry{name: "a", body: "1"}), t.TempDir(), nil, func(p float64) {
			reports = append(reports, p)
		}))
		assert.Equal(t, []float64{1}, reports)
	})
}

func TestExtractMalformedArchive(t *testing.T) {
	err := Extract([]byte("definitely not a zip"), t.TempDir(), AllowAll, nil)
	var archiveErr *ArchiveError
	require.ErrorAs(t, err, &archiveErr)
}

func TestExtractFilesystemFailure(t *testing.T) {
	root := t.TempDir()
	// a regular file where a directory is needed
	require.NoError(t, os.WriteFile(filepath.Join(root, "trimui"), []byte("file"), 0o644))

	err := Extract(buildZip(t, entry{name: "trimui/app/run.sh", body: "x"}), root, AllowAll, nil)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}
