package ctm

import "io"

// RawEncoder stores every array verbatim.
type RawEncoder struct{}

func (RawEncoder) Tier() CompressionTier {
	return Raw
}

func (RawEncoder) Encode(wt io.Writer, m *ContainerMesh) error {
	lw := newLittleWriter(wt)
	lw.writeTag(sectionIndices)
	lw.write(m.Indices)
	lw.writeTag(sectionVertices)
	lw.write(m.Vertices)
	if m.HasNormals() {
		lw.writeTag(sectionNormals)
		lw.write(m.Normals)
	}
	for _, uv := range m.UVMaps {
		lw.writeTag(sectionTexCoords)
		lw.writeChannelHeader(uv)
		lw.write(uv.Values)
	}
	for _, at := range m.Attributes {
		lw.writeTag(sectionAttributes)
		lw.writeChannelHeader(at)
		lw.write(at.Values)
	}
	return lw.err
}

func decodeRawBody(lr *littleReader, h *FileHeader) (*ContainerMesh, error) {
	vc := int(h.VertexCount)
	m := &ContainerMesh{}
	lr.expectTag(sectionIndices)
	m.Indices = lr.readUint32s(int(h.TriangleCount) * 3)
	lr.expectTag(sectionVertices)
	m.Vertices = lr.readFloats(vc * 3)
	if h.HasNormals() {
		lr.expectTag(sectionNormals)
		m.Normals = lr.readFloats(vc * 3)
	}
	readChannels := func(tag [4]byte, n int32) []*AttributeChannel {
		var chs []*AttributeChannel
		for i := int32(0); i < n; i++ {
			lr.expectTag(tag)
			ch := lr.readChannelHeader()
			if lr.err != nil {
				return nil
			}
			ch.Values = lr.readFloats(vc * ch.Components)
			chs = append(chs, ch)
		}
		return chs
	}
	m.UVMaps = readChannels(sectionTexCoords, h.UVMapCount)
	m.Attributes = readChannels(sectionAttributes, h.AttrMapCount)
	if lr.err != nil {
		return nil, lr.err
	}
	return m, nil
}
