package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestDetermineAssetType(t *testing.T) {
	cases := map[string]metadata.ResourceType{
		"shaders/deferred.frag.spv": metadata.ResourceTypeShader,
		"textures/a.png":            metadata.ResourceTypeImage,
		"textures/a.jpg":            metadata.ResourceTypeImage,
		"models/a.gltf":             metadata.ResourceTypeModel,
		"models/a.glb":              metadata.ResourceTypeModel,
		"config/debug.toml":         metadata.ResourceTypeSettings,
		"shaders/deferred.frag":     metadata.ResourceTypeNone,
		"README":                    metadata.ResourceTypeNone,
	}
	for path, want := range cases {
		assert.Equal(t, want, DetermineAssetType(path), path)
	}
}

func TestInitializeIndexesKnownAssets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ShaderDir, "a.vert.spv"), []byte{1, 2, 3, 4})
	writeFile(t, filepath.Join(root, ShaderDir, "a.vert"), []byte("#version 450"))
	writeFile(t, filepath.Join(root, "config", "debug.toml"), []byte("deferred_type = 2\n"))

	am := NewAssetManager(root)
	require.NoError(t, am.Initialize())

	info, ok := am.Info(filepath.Join(root, ShaderDir, "a.vert.spv"))
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeShader, info.Type)
	_, ok = am.Info(filepath.Join(root, ShaderDir, "a.vert"))
	assert.False(t, ok)

	code, err := am.Shader("a.vert.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, code)

	settings, err := am.Settings(filepath.Join(root, "config", "debug.toml"))
	require.NoError(t, err)
	assert.Equal(t, metadata.DeferredAlbedo, settings.DeferredType)

	info, _ = am.Info(filepath.Join(root, "config", "debug.toml"))
	assert.False(t, info.LastLoaded.IsZero())
}

func TestLoadAssetNotIndexed(t *testing.T) {
	am := NewAssetManager(t.TempDir())
	require.NoError(t, am.Initialize())
	_, err := am.Shader("missing.spv")
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	root := t.TempDir()
	present := filepath.Join(root, "a.toml")
	writeFile(t, present, nil)
	am := NewAssetManager(root)
	require.NoError(t, am.Initialize())

	assert.NoError(t, am.Require(present))
	err := am.Require(present, filepath.Join(root, "b.toml"))
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestWatchReportsWrites(t *testing.T) {
	root := t.TempDir()
	am := NewAssetManager(root)
	require.NoError(t, am.Initialize())

	changed := make(chan AssetInfo, 8)
	am.OnChange(func(info AssetInfo) { changed <- info })
	require.NoError(t, am.Watch())
	defer am.Close()

	path := filepath.Join(root, "debug.toml")
	writeFile(t, path, []byte("deferred_type = 0\n"))

	select {
	case info := <-changed:
		assert.Equal(t, path, info.Path)
		assert.Equal(t, metadata.ResourceTypeSettings, info.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	_, ok := am.Info(path)
	assert.True(t, ok)

	require.NoError(t, am.Close())
	require.NoError(t, am.Close())
}

func TestPreloadCachesUntilWrite(t *testing.T) {
	root := t.TempDir()
	shader := filepath.Join(root, ShaderDir, "a.frag.spv")
	writeFile(t, shader, []byte{1, 2, 3, 4})
	writeFile(t, filepath.Join(root, ShaderDir, "b.frag.spv"), []byte{5, 6, 7, 8})

	am := NewAssetManager(root)
	require.NoError(t, am.Initialize())
	paths := am.Paths(metadata.ResourceTypeShader)
	assert.Len(t, paths, 2)
	require.NoError(t, am.Preload(2, paths...))

	// the cached copy survives a change the index has not seen yet
	writeFile(t, shader, []byte{9, 9, 9, 9})
	code, err := am.Shader("a.frag.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, code)

	am.handleFileEvent(shader)
	code, err = am.Shader("a.frag.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9}, code)
}

func TestPreloadReportsFailures(t *testing.T) {
	root := t.TempDir()
	bad := filepath.Join(root, "odd.spv")
	writeFile(t, bad, []byte{1, 2, 3})
	am := NewAssetManager(root)
	require.NoError(t, am.Initialize())

	err := am.Preload(1, bad, filepath.Join(root, "missing.spv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "odd.spv")
	assert.Contains(t, err.Error(), "missing.spv")
}
