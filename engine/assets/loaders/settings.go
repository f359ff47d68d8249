package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// SettingsLoader reads debug tunables. Missing keys keep their defaults.
type SettingsLoader struct{}

func (sl *SettingsLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	settings, err := ParseSettings(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeSettings,
		DataSize: uint64(len(data)),
		Data:     settings,
	}, nil
}

func (sl *SettingsLoader) Unload(*metadata.Resource) error {
	return nil
}

func ParseSettings(data []byte) (*metadata.DebugSettings, error) {
	settings := metadata.DefaultDebugSettings()
	if err := toml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	if settings.DeferredType < metadata.DeferredPosition || settings.DeferredType > metadata.DeferredLight {
		return nil, fmt.Errorf("deferred_type %d out of range", settings.DeferredType)
	}
	if settings.LightComputeType < 0 || settings.LightComputeType >= metadata.LightComputeMax {
		return nil, fmt.Errorf("light_compute_type %d out of range", settings.LightComputeType)
	}
	if settings.ShadowFarPlane <= 0 {
		return nil, fmt.Errorf("shadow_far_plane must be positive, got %g", settings.ShadowFarPlane)
	}
	return &settings, nil
}
