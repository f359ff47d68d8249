package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/umbra/engine/assets/loaders"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// ShaderDir is the directory of compiled shaders below the asset root.
const ShaderDir = "shaders"

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// ChangeFunc is called from the watcher goroutine when an asset is written.
type ChangeFunc func(info AssetInfo)

type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex
	cache map[string]*metadata.Resource

	listeners []ChangeFunc

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(root string) *AssetManager {
	am := &AssetManager{
		root:    root,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		cache:   make(map[string]*metadata.Resource),
	}
	am.registerLoader(metadata.ResourceTypeShader, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.TextureLoader{})
	am.registerLoader(metadata.ResourceTypeModel, &loaders.ModelLoader{})
	am.registerLoader(metadata.ResourceTypeSettings, &loaders.SettingsLoader{})
	return am
}

// Initialize indexes every known asset below the root.
func (am *AssetManager) Initialize() error {
	return filepath.WalkDir(am.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			am.handleFileEvent(path)
		}
		return nil
	})
}

// Watch starts reporting asset writes to the registered listeners.
func (am *AssetManager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = watcher
	am.done = make(chan struct{})
	am.stopped = make(chan struct{})
	if err := am.watchRecursive(am.root, false); err != nil {
		watcher.Close()
		am.fsnotify = nil
		return err
	}
	go am.start()
	core.LogInfo("Watching assets in %s", am.root)
	return nil
}

// OnChange registers fn for asset writes. Register before Watch.
func (am *AssetManager) OnChange(fn ChangeFunc) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.listeners = append(am.listeners, fn)
}

// Close stops the watcher and waits for its goroutine.
func (am *AssetManager) Close() error {
	if am.fsnotify == nil || am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	<-am.stopped
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Info returns the index entry of path.
func (am *AssetManager) Info(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

// LoadAsset loads the indexed asset at path with the loader of its type.
// Preloaded assets are served from the cache until the file changes.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*metadata.Resource, error) {
	path = filepath.Clean(path)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	cached, hit := am.cache[path]
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", path)
	}
	if hit && params == nil {
		return cached, nil
	}

	loader, ok := am.loaders[asset.Type]
	if !ok {
		return nil, fmt.Errorf("no loader registered for asset type %s", asset.Type)
	}
	return loader.Load(path, params)
}

// Preload loads paths on a worker pool and caches the results.
func (am *AssetManager) Preload(workers int, paths ...string) error {
	js, err := core.NewJobSystem(max(workers, 1), len(paths))
	if err != nil {
		return err
	}

	var (
		errMu sync.Mutex
		errs  []error
	)
	for _, p := range paths {
		p := filepath.Clean(p)
		err := js.Submit(core.JobTask{
			Run: func() error {
				res, err := am.LoadAsset(p, nil)
				if err != nil {
					return fmt.Errorf("preload %s: %w", p, err)
				}
				am.mutex.Lock()
				am.cache[p] = res
				am.mutex.Unlock()
				return nil
			},
			OnFailure: func(err error) {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			},
		})
		if err != nil {
			errMu.Lock()
			errs = append(errs, err)
			errMu.Unlock()
			break
		}
	}
	if err := js.Shutdown(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Paths lists the indexed assets of type t.
func (am *AssetManager) Paths(t metadata.ResourceType) []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	var paths []string
	for p, info := range am.assets {
		if info.Type == t {
			paths = append(paths, p)
		}
	}
	return paths
}

// Shader returns the SPIR-V bytes of a compiled stage below ShaderDir.
func (am *AssetManager) Shader(name string) ([]byte, error) {
	res, err := am.LoadAsset(filepath.Join(am.root, ShaderDir, name), nil)
	if err != nil {
		return nil, err
	}
	return res.Data.([]byte), nil
}

func (am *AssetManager) Model(path string, instances []float32) (*metadata.Model, error) {
	res, err := am.LoadAsset(path, &metadata.ModelParams{Instances: instances})
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.Model), nil
}

func (am *AssetManager) Image(path string, flipY bool) (*metadata.ImageData, error) {
	res, err := am.LoadAsset(path, &metadata.ImageParams{FlipY: flipY})
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.ImageData), nil
}

func (am *AssetManager) Settings(path string) (*metadata.DebugSettings, error) {
	res, err := am.LoadAsset(path, nil)
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.DebugSettings), nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			if err := am.fsnotify.Close(); err != nil {
				core.LogError("closing asset watcher: %s", err)
			}
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(e.Name, true); err != nil {
				core.LogWarn("watching %s: %s", e.Name, err)
			}
		}
		return
	}

	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
		return
	}
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
		return
	}
	info, ok := am.handleFileEvent(e.Name)
	if !ok {
		return
	}

	am.mutex.RLock()
	listeners := append([]ChangeFunc(nil), am.listeners...)
	am.mutex.RUnlock()
	for _, fn := range listeners {
		fn(info)
	}
}

// watchRecursive adds all directories under the given one to the watch list.
// Files are indexed too when index is set, for directories created after Initialize.
func (am *AssetManager) watchRecursive(path string, index bool) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		if index {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	path = filepath.Clean(path)
	assetType := DetermineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return AssetInfo{}, false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.cache, path)
	info := AssetInfo{Path: path, Type: assetType}
	if old, ok := am.assets[path]; ok {
		info.LastLoaded = old.LastLoaded
	}
	am.assets[path] = info
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
	delete(am.cache, filepath.Clean(path))
}

func DetermineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".png", ".jpg", ".jpeg":
		return metadata.ResourceTypeImage
	case ".gltf", ".glb":
		return metadata.ResourceTypeModel
	case ".toml":
		return metadata.ResourceTypeSettings
	default:
		return metadata.ResourceTypeNone
	}
}

// ErrNotIndexed is returned by Require for assets missing from the index.
var ErrNotIndexed = errors.New("asset not indexed")

// Require fails when any of paths is missing from the index.
func (am *AssetManager) Require(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if _, ok := am.Info(p); !ok {
			errs = append(errs, fmt.Errorf("%s: %w", p, ErrNotIndexed))
		}
	}
	return errors.Join(errs...)
}
