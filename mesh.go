package ctm

import (
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec3"
)

// AttributeChannel 按顶点存储的命名属性通道（UV 或自定义属性）
type AttributeChannel struct {
	Name       string    `json:"name"`
	Filename   string    `json:"filename,omitempty"`
	Components int       `json:"components"`
	Precision  int       `json:"precision,omitempty"`
	Values     []float32 `json:"values"`
}

// NewUVMap creates a two component texture coordinate channel.
func NewUVMap(name, filename string, values []float32) *AttributeChannel {
	return &AttributeChannel{Name: name, Filename: filename, Components: 2, Values: values}
}

// NewAttributeMap creates a generic channel with the given arity.
func NewAttributeMap(name string, components int, values []float32) *AttributeChannel {
	return &AttributeChannel{Name: name, Components: components, Values: values}
}

func (c *AttributeChannel) ElementCount() int {
	if c.Components <= 0 {
		return 0
	}
	return len(c.Values) / c.Components
}

func (c *AttributeChannel) clone() *AttributeChannel {
	cp := *c
	cp.Values = append([]float32(nil), c.Values...)
	return &cp
}

func (c *AttributeChannel) precisionOr(def int) int {
	if c.Precision > 0 {
		return c.Precision
	}
	return def
}

// ContainerMesh 容器网格，编解码器与引擎之间的中间表示
type ContainerMesh struct {
	Vertices   []float32           `json:"vertices"`
	Normals    []float32           `json:"normals,omitempty"`
	Indices    []uint32            `json:"indices"`
	UVMaps     []*AttributeChannel `json:"uvMaps,omitempty"`
	Attributes []*AttributeChannel `json:"attributes,omitempty"`
}

func (m *ContainerMesh) VertexCount() int {
	return len(m.Vertices) / 3
}

func (m *ContainerMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

func (m *ContainerMesh) HasNormals() bool {
	return m.Normals != nil
}

func (m *ContainerMesh) UVCount() int {
	return len(m.UVMaps)
}

func (m *ContainerMesh) AttributeCount() int {
	return len(m.Attributes)
}

// Validate checks the structural invariants every encoder and decoder relies on.
func (m *ContainerMesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return meshError("vertices", "length %d is not a multiple of 3", len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return meshError("indices", "length %d is not a multiple of 3", len(m.Indices))
	}
	vc := m.VertexCount()
	for i, idx := range m.Indices {
		if int(idx) >= vc {
			return meshError("indices", "index %d at %d out of range (vertex count %d)", idx, i, vc)
		}
	}
	if m.Normals != nil && len(m.Normals) != len(m.Vertices) {
		return meshError("normals", "length %d does not match vertices length %d", len(m.Normals), len(m.Vertices))
	}
	if err := validateChannels("uv map", m.UVMaps, vc); err != nil {
		return err
	}
	return validateChannels("attribute map", m.Attributes, vc)
}

func validateChannels(field string, chs []*AttributeChannel, vc int) error {
	for i, ch := range chs {
		if ch == nil {
			return meshError(field, "channel %d is nil", i)
		}
		if ch.Components < 1 {
			return meshError(field, "channel %d (%s) has %d components", i, ch.Name, ch.Components)
		}
		if len(ch.Values) != ch.Components*vc {
			return meshError(field, "channel %d (%s) has %d values, want %d", i, ch.Name, len(ch.Values), ch.Components*vc)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m *ContainerMesh) Clone() *ContainerMesh {
	cp := &ContainerMesh{
		Vertices: append([]float32(nil), m.Vertices...),
		Indices:  append([]uint32(nil), m.Indices...),
	}
	if m.Normals != nil {
		cp.Normals = append([]float32(nil), m.Normals...)
	}
	for _, ch := range m.UVMaps {
		cp.UVMaps = append(cp.UVMaps, ch.clone())
	}
	for _, ch := range m.Attributes {
		cp.Attributes = append(cp.Attributes, ch.clone())
	}
	return cp
}

func (m *ContainerMesh) GetBoundbox() *[6]float64 {
	return boundsOf(m.Vertices)
}

func (m *ContainerMesh) BoundingBox() *BoundingBox {
	return NewBoundingBox(m.Vertices)
}

func boundsOf(vertices []float32) *[6]float64 {
	if len(vertices) < 3 {
		return &[6]float64{}
	}
	minX := math.MaxFloat64
	minY := math.MaxFloat64
	minZ := math.MaxFloat64
	maxX := -math.MaxFloat64
	maxY := -math.MaxFloat64
	maxZ := -math.MaxFloat64
	for i := 0; i+2 < len(vertices); i += 3 {
		minX = math.Min(minX, float64(vertices[i]))
		minY = math.Min(minY, float64(vertices[i+1]))
		minZ = math.Min(minZ, float64(vertices[i+2]))

		maxX = math.Max(maxX, float64(vertices[i]))
		maxY = math.Max(maxY, float64(vertices[i+1]))
		maxZ = math.Max(maxZ, float64(vertices[i+2]))
	}
	return &[6]float64{minX, minY, minZ, maxX, maxY, maxZ}
}

// WithComputedNormals returns a copy whose normals are the area weighted
// average of the adjacent face normals.
func (m *ContainerMesh) WithComputedNormals() *ContainerMesh {
	cp := m.Clone()
	cp.Normals = ComputeNormals(m.Vertices, m.Indices)
	return cp
}

func ComputeNormals(vertices []float32, indices []uint32) []float32 {
	normals := make([]vec3.T, len(vertices)/3)
	at := func(i uint32) vec3.T {
		return vec3.T{vertices[i*3], vertices[i*3+1], vertices[i*3+2]}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		pt1 := at(indices[t])
		pt2 := at(indices[t+1])
		pt3 := at(indices[t+2])

		sub1 := vec3.Sub(&pt3, &pt2)
		sub2 := vec3.Sub(&pt1, &pt2)

		cro := vec3.Cross(&sub1, &sub2)
		l := cro.Length()
		if l == 0 {
			continue
		}
		weightedNormal := cro.Scale(1 / l)

		normals[indices[t]].Add(weightedNormal)
		normals[indices[t+1]].Add(weightedNormal)
		normals[indices[t+2]].Add(weightedNormal)
	}

	out := make([]float32, 0, len(vertices))
	for i := range normals {
		if normals[i].Length() > 0 {
			normals[i].Normalize()
		} else {
			normals[i] = vec3.T{0, 0, 1}
		}
		out = append(out, normals[i][0], normals[i][1], normals[i][2])
	}
	return out
}

// BoundingBox 轴对齐包围盒
type BoundingBox struct {
	dvec3.Box
}

func NewBoundingBox(vertices []float32) *BoundingBox {
	bx := boundsOf(vertices)
	return &BoundingBox{Box: dvec3.Box{
		Min: dvec3.T{bx[0], bx[1], bx[2]},
		Max: dvec3.T{bx[3], bx[4], bx[5]},
	}}
}

func (b *BoundingBox) Extent() dvec3.T {
	return dvec3.T{
		(b.Max[0] - b.Min[0]) / 2,
		(b.Max[1] - b.Min[1]) / 2,
		(b.Max[2] - b.Min[2]) / 2,
	}
}

func (b *BoundingBox) Center() dvec3.T {
	return dvec3.T{
		(b.Max[0] + b.Min[0]) / 2,
		(b.Max[1] + b.Min[1]) / 2,
		(b.Max[2] + b.Min[2]) / 2,
	}
}

func (b *BoundingBox) Volume() float64 {
	e := b.Extent()
	return 8 * e[0] * e[1] * e[2]
}
