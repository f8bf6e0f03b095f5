package version

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ReadInstalledVersion returns the commit-hash prefix stored on the second
// line of the firmware's version marker file. A missing or short file yields
// an empty string, which matches no tag.
func ReadInstalledVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to read version file %s: %v", path, err)
		}
		return ""
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.TrimSpace(lines[1])
}
