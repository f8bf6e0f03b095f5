package update

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/extract"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// emuTagPattern captures the system tag of a ROM folder, e.g. "GBA" in "Game Boy Advance (GBA)"
var emuTagPattern = regexp.MustCompile(`\((\w+)\)`)

// SelectAsset picks the "all" asset for a full update and the "base" asset
// otherwise, falling back to the first asset.
func SelectAsset(assets []models.Asset, full bool) (models.Asset, error) {
	if len(assets) == 0 {
		return models.Asset{}, ErrNoAsset
	}

	want := "base"
	if full {
		want = "all"
	}
	for _, a := range assets {
		if strings.Contains(a.Name, want) {
			return a, nil
		}
	}
	return assets[0], nil
}

// QuickFilter accepts only entries under one of the given top-level prefixes
func QuickFilter(prefixes []string) extract.Filter {
	return func(p string) bool {
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				return true
			}
		}
		return false
	}
}

// FullFilter accepts every entry except ROM entries whose system tag is
// already used by a folder under root/romsDir. The folder listing is taken
// once, when the filter is built, so folders created by the extraction
// itself do not count.
func FullFilter(root, romsDir string) extract.Filter {
	prefix := path.Clean(filepath.ToSlash(romsDir)) + "/"
	installed := installedRomFolders(filepath.Join(root, romsDir))

	return func(p string) bool {
		if !strings.HasPrefix(p, prefix) {
			return true
		}
		m := emuTagPattern.FindStringSubmatch(p)
		if m == nil {
			return true
		}

		tag := "(" + m[1] + ")"
		for _, name := range installed {
			if strings.Contains(name, tag) {
				log.Debugf("Roms folder for %s already exists, skipping %s", m[1], p)
				return false
			}
		}
		return true
	}
}

func installedRomFolders(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to list %s: %v", dir, err)
		}
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}
