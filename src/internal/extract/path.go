package extract

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

var errPathEscapes = errors.New("path escapes target root")

// SanitizePath turns a stored entry name into a relative slash path that
// cannot leave the extraction root. Backslashes are treated as separators,
// and empty, "." and ".." components are dropped along with any drive
// prefix. A trailing separator is not preserved.
func SanitizePath(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if len(name) >= 2 && name[1] == ':' && isLetter(name[0]) {
		name = name[2:]
	}

	parts := strings.Split(name, "/")
	kept := parts[:0]
	for _, p := range parts {
		switch p {
		case "", ".", "..":
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "/")
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isZipError(err error) bool {
	var corrupt flate.CorruptInputError
	switch {
	case errors.Is(err, zip.ErrChecksum), errors.Is(err, zip.ErrAlgorithm), errors.Is(err, zip.ErrFormat):
		return true
	case errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &corrupt):
		return true
	}
	return false
}
