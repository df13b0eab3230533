package ctm

import "fmt"

// AttributeSource is anything exposing engine style tuple buffers.
type AttributeSource interface {
	VertexCoords() *FloatBuffer
	NormalCoords() *FloatBuffer
	IndexBuffer() *IndexBuffer
	TextureUnitCount() int
	TextureCoords(i int) *FloatBuffer
	AttributeBuffers() []*NamedBuffer
}

// TextureUnitSource is implemented by sources that keep uv map metadata next
// to their texture buffers.
type TextureUnitSource interface {
	TextureUnit(i int) *TextureUnit
}

func readAll(b *FloatBuffer) []float32 {
	out := make([]float32, b.Len())
	rd := b.Reader()
	n := 0
	for n < len(out) {
		k, err := rd.Read(out[n:])
		if err != nil {
			break
		}
		n += k
	}
	return out[:n]
}

func ReadVertices(src AttributeSource) ([]float32, error) {
	b := src.VertexCoords()
	if b == nil {
		return nil, &MissingAttributeError{Attribute: "vertices"}
	}
	return readAll(b), nil
}

// ReadNormals returns nil when the source carries no normals.
func ReadNormals(src AttributeSource) []float32 {
	b := src.NormalCoords()
	if b == nil {
		return nil
	}
	return readAll(b)
}

func ReadIndices(src AttributeSource) ([]uint32, error) {
	b := src.IndexBuffer()
	if b == nil {
		return nil, &MissingAttributeError{Attribute: "indices"}
	}
	out := make([]uint32, b.Len())
	rd := b.Reader()
	n := 0
	for n < len(out) {
		k, err := rd.Read(out[n:])
		if err != nil {
			break
		}
		n += k
	}
	return out[:n], nil
}

// ReadUVMap returns the values of texture unit i, or nil when the unit is empty.
func ReadUVMap(src AttributeSource, i int) []float32 {
	b := src.TextureCoords(i)
	if b == nil {
		return nil
	}
	return readAll(b)
}

// Extract flattens a source into a container mesh. Texture units keep their slot
// order; empty units in between are skipped. UV maps are named uv<unit> unless
// the source keeps their metadata.
func Extract(src AttributeSource) (*ContainerMesh, error) {
	if src == nil {
		return nil, &NullSourceError{What: "attribute source"}
	}
	vertices, err := ReadVertices(src)
	if err != nil {
		return nil, err
	}
	indices, err := ReadIndices(src)
	if err != nil {
		return nil, err
	}
	m := &ContainerMesh{
		Vertices: vertices,
		Normals:  ReadNormals(src),
		Indices:  indices,
	}
	for i := 0; i < src.TextureUnitCount(); i++ {
		b := src.TextureCoords(i)
		if b == nil {
			continue
		}
		uv := &AttributeChannel{
			Name:       fmt.Sprintf("uv%d", i),
			Components: b.ValuesPerTuple(),
			Values:     readAll(b),
		}
		if ts, ok := src.(TextureUnitSource); ok {
			if u := ts.TextureUnit(i); u != nil {
				uv.Name, uv.Filename, uv.Precision = u.Name, u.Filename, u.Precision
			}
		}
		m.UVMaps = append(m.UVMaps, uv)
	}
	for _, at := range src.AttributeBuffers() {
		if at == nil || at.FloatBuffer == nil {
			continue
		}
		m.Attributes = append(m.Attributes, &AttributeChannel{
			Name:       at.Name,
			Components: at.ValuesPerTuple(),
			Precision:  at.Precision,
			Values:     readAll(at.FloatBuffer),
		})
	}
	return m, nil
}
