package metadata

/** @brief Raw indexed geometry ready for upload. Vertices follow one of the backend vertex layouts. */
type Mesh struct {
	Vertices []byte
	Indices  []uint32
}

/** @brief A loaded model: one mesh per primitive plus optional per-instance offsets (x, y, z triples). */
type Model struct {
	Name      string
	Meshes    []Mesh
	Instances []float32
}

// VertexCount returns the number of vertices of a mesh with the given stride.
func (m Mesh) VertexCount(stride int) int {
	if stride <= 0 {
		return 0
	}
	return len(m.Vertices) / stride
}
