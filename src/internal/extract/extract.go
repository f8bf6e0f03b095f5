// Package extract unpacks zip archives into an install root.
//
// Extraction is not transactional: a failure partway through leaves the
// entries written so far in place. Re-running the same extraction overwrites
// them, which is sufficient for firmware assets. Callers that need to protect
// a file across a failed extraction (the updater's own binary) must back it up
// themselves.
package extract

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
)

// Filter decides whether an entry, identified by its sanitized slash-separated
// path, is extracted. It may consult the filesystem.
type Filter func(path string) bool

// AllowAll extracts every entry
func AllowAll(string) bool { return true }

// Extract unpacks data into root, in archive order.
//
// Entries are sanitized with SanitizePath before filtering; entries whose
// sanitized path is empty are ignored. progress, when non-nil, receives
// index/(count-1) after every entry, filtered or not; single-entry archives
// report 1.0.
func Extract(data []byte, root string, filter Filter, progress func(float64)) error {
	if filter == nil {
		filter = AllowAll
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return &ArchiveError{Err: err}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return &IOError{Op: "resolve", Path: root, Err: err}
	}

	count := len(r.File)
	for i, f := range r.File {
		if err := extractEntry(f, absRoot, filter); err != nil {
			return err
		}

		if progress != nil {
			if count <= 1 {
				progress(1.0)
			} else {
				progress(float64(i) / float64(count-1))
			}
		}
	}

	return nil
}

func extractEntry(f *zip.File, absRoot string, filter Filter) error {
	name := SanitizePath(f.Name)
	if name == "" {
		log.Debugf("ignoring entry with empty path: %q", f.Name)
		return nil
	}

	if !filter(name) {
		log.Debugf("skipping file: %s", name)
		return nil
	}

	target := filepath.Join(absRoot, filepath.FromSlash(name))
	if !within(absRoot, target) {
		return &ArchiveError{Entry: f.Name, Err: errPathEscapes}
	}

	mode := f.Mode()
	switch {
	case mode.IsDir() || strings.HasSuffix(f.Name, "/"):
		if err := os.MkdirAll(target, 0o755); err != nil {
			return &IOError{Op: "create directory", Path: target, Err: err}
		}
		log.Debugf("created directory: %s", target)
		return nil
	case mode&os.ModeSymlink != 0:
		log.Warnf("skipping symlink entry: %s", name)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &IOError{Op: "create directory", Path: filepath.Dir(target), Err: err}
	}

	rc, err := f.Open()
	if err != nil {
		return &ArchiveError{Entry: f.Name, Err: err}
	}
	defer rc.Close()

	perm := mode.Perm() | 0o600
	if mode.Perm() == 0 {
		perm = 0o644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return &IOError{Op: "create", Path: target, Err: err}
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		if isZipError(err) {
			return &ArchiveError{Entry: f.Name, Err: err}
		}
		return &IOError{Op: "write", Path: target, Err: err}
	}
	if err := out.Close(); err != nil {
		return &IOError{Op: "close", Path: target, Err: err}
	}

	log.Debugf("extracted file: %s", target)
	return nil
}
