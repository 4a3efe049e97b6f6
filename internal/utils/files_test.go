package utils

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := filepath.Join("out", "charts", "bar.png")
	require.NoError(t, SafeWriteFile(fsys, path, []byte("png")))

	got, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(got))
	exists, err := afero.Exists(fsys, path+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, SafeWriteFile(fsys, path, []byte("again")))
	got, _ = afero.ReadFile(fsys, path)
	assert.Equal(t, "again", string(got))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("exports", "muestra.xlsx"), OutputPath("exports", "muestra.xlsx"))
	assert.Equal(t, filepath.Join("a", "b.png"), OutputPath("exports", filepath.Join("a", "b.png")))
	assert.Equal(t, "b.png", OutputPath("", "b.png"))
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"rows": 3})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"rows\": 3\n}", string(b))
}
