package storage

import (
	"cgmd/internal/testutil"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestFileManager(comp CompressorInterface) (*FileManager, *testutil.MockMetrics) {
	metrics := &testutil.MockMetrics{}
	return NewFileManager(comp, &testutil.MockLogger{}, metrics), metrics
}

func TestFileManager_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	fm, metrics := newTestFileManager(&testutil.MockCompressor{})

	require.NoError(t, fm.SaveToFile(path, doc{Name: "a", Count: 2}))

	var out doc
	found, err := fm.LoadFromFile(path, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, doc{Name: "a", Count: 2}, out)
	assert.Equal(t, 1, metrics.Persisted)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileManager_SaveWithZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.zst")
	comp, err := NewZstdCompressor()
	require.NoError(t, err)
	fm, _ := newTestFileManager(comp)

	require.NoError(t, fm.SaveToFile(path, doc{Name: "z"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"name"`)

	var out doc
	found, err := fm.LoadFromFile(path, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "z", out.Name)
}

func TestFileManager_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	fm, _ := newTestFileManager(&testutil.MockCompressor{})

	require.NoError(t, fm.SaveToFile(path, doc{Count: 1}))
	require.NoError(t, fm.SaveToFile(path, doc{Count: 2}))

	var out doc
	_, err := fm.LoadFromFile(path, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
}

func TestFileManager_LoadMissingFile(t *testing.T) {
	fm, _ := newTestFileManager(&testutil.MockCompressor{})

	var out doc
	found, err := fm.LoadFromFile("/nonexistent/path/doc.json", &out)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestFileManager_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0644))
	fm, _ := newTestFileManager(&testutil.MockCompressor{})

	var out doc
	_, err := fm.LoadFromFile(path, &out)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
}

func TestFileManager_DecompressErrorIsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dec.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	fm, _ := newTestFileManager(&testutil.MockCompressor{
		DecompressFn: func([]byte) ([]byte, error) { return nil, errors.New("bad frame") },
	})

	var out doc
	_, err := fm.LoadFromFile(path, &out)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestFileManager_CompressError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "err.json")
	fm, _ := newTestFileManager(&testutil.MockCompressor{
		CompressFn: func([]byte) ([]byte, error) { return nil, errors.New("compress failed") },
	})

	err := fm.SaveToFile(path, doc{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compress failed")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileManager_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	fm, _ := newTestFileManager(&testutil.MockCompressor{})
	require.NoError(t, fm.SaveToFile(path, doc{}))

	require.NoError(t, fm.Remove(path))
	require.NoError(t, fm.Remove(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
