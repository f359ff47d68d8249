package loaders

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// ModelLoader reads every triangle primitive of a glTF or GLB file as a
// position + normal mesh.
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}

	model := &metadata.Model{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	if p, ok := params.(*metadata.ModelParams); ok && p != nil {
		if len(p.Instances)%3 != 0 {
			return nil, fmt.Errorf("%s: instance offsets must be xyz triples, got %d floats", path, len(p.Instances))
		}
		model.Instances = p.Instances
	}

	size := 0
	for _, mesh := range doc.Meshes {
		for i, prim := range mesh.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}
			m, err := readPrimitive(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("%s mesh %q primitive %d: %w", path, mesh.Name, i, err)
			}
			size += len(m.Vertices) + 4*len(m.Indices)
			model.Meshes = append(model.Meshes, m)
		}
	}
	if len(model.Meshes) == 0 {
		return nil, fmt.Errorf("%s: no triangle primitives", path)
	}

	return &metadata.Resource{
		Name:     model.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeModel,
		DataSize: uint64(size),
		Data:     model,
	}, nil
}

func (ml *ModelLoader) Unload(*metadata.Resource) error {
	return nil
}

func readPrimitive(doc *gltf.Document, prim *gltf.Primitive) (metadata.Mesh, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return metadata.Mesh{}, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return metadata.Mesh{}, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return metadata.Mesh{}, fmt.Errorf("normals: %w", err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return metadata.Mesh{}, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return metadata.Mesh{}, fmt.Errorf("index %d out of %d vertices", idx, len(positions))
		}
	}

	if len(normals) != len(positions) {
		normals = faceNormals(positions, indices)
	}
	return metadata.Mesh{Vertices: interleave(positions, normals), Indices: indices}, nil
}

// interleave packs position and normal of each vertex, matching the
// position + normal vertex layout.
func interleave(positions, normals [][3]float32) []byte {
	out := make([]byte, 0, len(positions)*24)
	for i, p := range positions {
		n := normals[i]
		for _, f := range [6]float32{p[0], p[1], p[2], n[0], n[1], n[2]} {
			bits := math.Float32bits(f)
			out = append(out, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
		}
	}
	return out
}

// faceNormals averages the triangle normals touching each vertex.
func faceNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	sum := make([][3]float32, len(positions))
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := positions[indices[t]], positions[indices[t+1]], positions[indices[t+2]]
		u := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		v := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		n := [3]float32{u[1]*v[2] - u[2]*v[1], u[2]*v[0] - u[0]*v[2], u[0]*v[1] - u[1]*v[0]}
		for _, idx := range indices[t : t+3] {
			sum[idx][0] += n[0]
			sum[idx][1] += n[1]
			sum[idx][2] += n[2]
		}
	}
	for i, n := range sum {
		l := float32(math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])))
		if l == 0 {
			sum[i] = [3]float32{0, 1, 0}
			continue
		}
		sum[i] = [3]float32{n[0] / l, n[1] / l, n[2] / l}
	}
	return sum
}
