package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStem(t *testing.T) {
	assert.Equal(t, "Cometa_en_EN", Stem("/i18n/Cometa_en_EN.ts"))
	assert.Equal(t, "Cometa", Stem("Cometa"))
}

func TestFindByExt(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	for _, p := range []string{
		filepath.Join(root, "Cometa_en_EN.ts"),
		filepath.Join(nested, "Cometa_de_DE.TS"),
		filepath.Join(root, "README.md"),
	} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	found, err := FindByExt(root, "ts")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "Cometa_en_EN.ts"),
		filepath.Join(nested, "Cometa_de_DE.TS"),
	}, found)
}

func TestFindByExt_MissingDir(t *testing.T) {
	_, err := FindByExt(filepath.Join(t.TempDir(), "absent"), ".ts")
	assert.Error(t, err)
}
