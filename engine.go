package ctm

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TextureUnit 纹理单元上 UV 通道的元数据
type TextureUnit struct {
	Name      string
	Filename  string
	Precision int
}

// MeshData groups the renderer facing buffers of a mesh.
type MeshData struct {
	Vertices  *FloatBuffer
	Normals   *FloatBuffer
	Indices   *IndexBuffer
	TexCoords []*FloatBuffer
	// TexUnits parallels TexCoords; nil entries carry no metadata.
	TexUnits   []*TextureUnit
	Attributes []*NamedBuffer
}

func (d *MeshData) VertexCoords() *FloatBuffer {
	return d.Vertices
}

func (d *MeshData) NormalCoords() *FloatBuffer {
	return d.Normals
}

func (d *MeshData) IndexBuffer() *IndexBuffer {
	return d.Indices
}

func (d *MeshData) TextureUnitCount() int {
	return len(d.TexCoords)
}

// TextureCoords returns the texture buffer bound at unit i, or nil.
func (d *MeshData) TextureCoords(i int) *FloatBuffer {
	if i < 0 || i >= len(d.TexCoords) {
		return nil
	}
	return d.TexCoords[i]
}

// SetTextureCoords binds buf at unit i, growing the unit list when needed.
func (d *MeshData) SetTextureCoords(buf *FloatBuffer, i int) {
	for len(d.TexCoords) <= i {
		d.TexCoords = append(d.TexCoords, nil)
	}
	d.TexCoords[i] = buf
}

// TextureUnit returns the metadata of unit i, or nil.
func (d *MeshData) TextureUnit(i int) *TextureUnit {
	if i < 0 || i >= len(d.TexUnits) {
		return nil
	}
	return d.TexUnits[i]
}

func (d *MeshData) SetTextureUnit(u *TextureUnit, i int) {
	for len(d.TexUnits) <= i {
		d.TexUnits = append(d.TexUnits, nil)
	}
	d.TexUnits[i] = u
}

func (d *MeshData) AttributeBuffers() []*NamedBuffer {
	return d.Attributes
}

func (d *MeshData) VertexCount() int {
	if d.Vertices == nil {
		return 0
	}
	return d.Vertices.TupleCount()
}

// EngineMesh 引擎网格
type EngineMesh struct {
	ID    uuid.UUID
	Name  string
	Data  *MeshData
	Bound *BoundingBox
}

// NewEngineMesh wraps data into a named mesh and computes its model bound.
func NewEngineMesh(name string, data *MeshData) *EngineMesh {
	em := &EngineMesh{ID: uuid.New(), Name: name, Data: data}
	em.UpdateModelBound()
	return em
}

// UpdateModelBound recomputes the bounding box from the vertex buffer.
func (m *EngineMesh) UpdateModelBound() {
	if m.Data == nil || m.Data.Vertices == nil {
		m.Bound = &BoundingBox{}
		return
	}
	m.Bound = NewBoundingBox(m.Data.Vertices.data)
}

func (m *EngineMesh) VertexCoords() *FloatBuffer {
	return m.Data.VertexCoords()
}

func (m *EngineMesh) NormalCoords() *FloatBuffer {
	return m.Data.NormalCoords()
}

func (m *EngineMesh) IndexBuffer() *IndexBuffer {
	return m.Data.IndexBuffer()
}

func (m *EngineMesh) TextureUnitCount() int {
	return m.Data.TextureUnitCount()
}

func (m *EngineMesh) TextureCoords(i int) *FloatBuffer {
	return m.Data.TextureCoords(i)
}

func (m *EngineMesh) TextureUnit(i int) *TextureUnit {
	return m.Data.TextureUnit(i)
}

func (m *EngineMesh) AttributeBuffers() []*NamedBuffer {
	return m.Data.AttributeBuffers()
}

// Build converts a container mesh into a new engine mesh named name.
// All buffers are fresh copies; mesh is left untouched.
func Build(mesh *ContainerMesh, name string) (*EngineMesh, error) {
	if mesh == nil {
		return nil, &NullSourceError{What: "mesh"}
	}
	if err := mesh.Validate(); err != nil {
		return nil, &ImportError{Name: name, Cause: err}
	}

	data := &MeshData{
		Indices:  NewIndexBuffer(mesh.Indices),
		Vertices: NewFloatBuffer(mesh.Vertices, 3),
	}
	if mesh.HasNormals() {
		data.Normals = NewFloatBuffer(mesh.Normals, 3)
	}
	for i, uv := range mesh.UVMaps {
		data.SetTextureCoords(NewFloatBuffer(uv.Values, uv.Components), i)
		data.SetTextureUnit(&TextureUnit{Name: uv.Name, Filename: uv.Filename, Precision: uv.Precision}, i)
	}
	for _, at := range mesh.Attributes {
		data.Attributes = append(data.Attributes, &NamedBuffer{
			Name:        at.Name,
			Precision:   at.Precision,
			FloatBuffer: NewFloatBuffer(at.Values, at.Components),
		})
	}

	em := NewEngineMesh(name, data)
	Logger().Debug("engine mesh built",
		zap.String("name", name),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Int("texture_units", len(data.TexCoords)),
		zap.Float64("volume", em.Bound.Volume()))
	return em, nil
}
