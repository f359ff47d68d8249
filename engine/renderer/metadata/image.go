package metadata

/**
 * @brief Decoded image pixels, always four channels.
 */
type ImageData struct {
	Width  uint32
	Height uint32
	/** @brief RGBA8 rows, top row first unless flipped on load. */
	Pixels []byte
}

/** @brief Parameters used when loading an image. */
type ImageParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}

/** @brief Parameters used when loading a model. */
type ModelParams struct {
	/** @brief Per-instance offsets (x, y, z triples) attached to the model. */
	Instances []float32
}
