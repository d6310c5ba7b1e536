package file

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FindByExt walks dir and returns every regular file whose extension matches
// ext (case-insensitive), sorted by path.
func FindByExt(dir, ext string) ([]string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}
