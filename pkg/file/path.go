package file

import (
	"path/filepath"
	"strings"
)

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
