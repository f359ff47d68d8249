package metadata

type ResourceType int

/** @brief Resource types known to the asset manager. */
const (
	/** @brief Files the asset manager ignores. */
	ResourceTypeNone ResourceType = iota
	/** @brief Compiled SPIR-V shader stage. */
	ResourceTypeShader
	/** @brief PNG or JPEG image decoded to RGBA8. */
	ResourceTypeImage
	/** @brief glTF model. */
	ResourceTypeModel
	/** @brief TOML debug settings. */
	ResourceTypeSettings
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeModel:
		return "model"
	case ResourceTypeSettings:
		return "settings"
	}
	return "none"
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	Type     ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data: []byte, *ImageData, *Model or *DebugSettings. */
	Data interface{}
}
