package metadata

/** @brief Selects what the lighting pass writes to the screen. */
type DeferredType int32

const (
	DeferredPosition DeferredType = iota
	DeferredNormal
	DeferredAlbedo
	DeferredLight
)

/** @brief Selects the lighting model of the lighting pass. */
type LightComputeType int32

const (
	LightComputePBR LightComputeType = iota
	LightComputeBasic
	LightComputeMax
)

/**
 * @brief Tunables shared with the debug overlay. Uploaded every frame into
 * the GUI_SETTING uniform buffer.
 */
type DebugSettings struct {
	DeferredType     DeferredType     `toml:"deferred_type"`
	LightComputeType LightComputeType `toml:"light_compute_type"`
	ShadowBias       float32          `toml:"shadow_bias"`
	ShadowFarPlane   float32          `toml:"shadow_far_plane"`
	ShadowDiskRadius float32          `toml:"shadow_disk_radius"`
	_                [3]float32
}

func DefaultDebugSettings() DebugSettings {
	return DebugSettings{
		DeferredType:     DeferredLight,
		LightComputeType: LightComputePBR,
		ShadowBias:       0.15,
		ShadowFarPlane:   100,
		ShadowDiskRadius: 0.05,
	}
}

// NextLightCompute cycles through the lighting models.
func (s DebugSettings) NextLightCompute() DebugSettings {
	s.LightComputeType = (s.LightComputeType + 1) % LightComputeMax
	return s
}
