package ctm

import (
	"io"
	"sort"
)

// TriangleReorderer is implemented by encoders that permute whole triangles.
type TriangleReorderer interface {
	RearrangeTriangles(indices []uint32) []uint32
}

// MG1Encoder is lossless on every value but stores triangles in canonical order.
type MG1Encoder struct{}

func (MG1Encoder) Tier() CompressionTier {
	return Tier1
}

// RearrangeTriangles returns the triangle order an MG1 stream decodes to: each
// triangle is rotated so that its smallest index comes first (winding is kept),
// then triangles are stably sorted by their first and second index.
func (MG1Encoder) RearrangeTriangles(indices []uint32) []uint32 {
	tris := make([][3]uint32, len(indices)/3)
	for i := range tris {
		a, b, c := indices[i*3], indices[i*3+1], indices[i*3+2]
		if b < a && b < c {
			a, b, c = b, c, a
		} else if c < a && c < b {
			a, b, c = c, a, b
		}
		tris[i] = [3]uint32{a, b, c}
	}
	sort.SliceStable(tris, func(i, j int) bool {
		if tris[i][0] != tris[j][0] {
			return tris[i][0] < tris[j][0]
		}
		return tris[i][1] < tris[j][1]
	})
	out := make([]uint32, 0, len(tris)*3)
	for _, t := range tris {
		out = append(out, t[0], t[1], t[2])
	}
	return out
}

// makeIndexDeltas codes the first index of each triangle against the previous
// triangle, the second against the previous second index when both triangles
// share a first index, and otherwise against the own first index.
func makeIndexDeltas(indices []uint32) []int32 {
	d := make([]int32, len(indices))
	for i := 0; i < len(indices)/3; i++ {
		a := int64(indices[i*3])
		b := int64(indices[i*3+1])
		c := int64(indices[i*3+2])
		if i >= 1 {
			pa := int64(indices[(i-1)*3])
			d[i*3] = int32(a - pa)
			if a == pa {
				d[i*3+1] = int32(b - int64(indices[(i-1)*3+1]))
			} else {
				d[i*3+1] = int32(b - a)
			}
		} else {
			d[i*3] = int32(a)
			d[i*3+1] = int32(b - a)
		}
		d[i*3+2] = int32(c - a)
	}
	return d
}

func restoreIndices(d []int32) []uint32 {
	out := make([]uint32, len(d))
	for i := 0; i < len(d)/3; i++ {
		var a, b int64
		if i >= 1 {
			pa := int64(out[(i-1)*3])
			a = int64(d[i*3]) + pa
			if d[i*3] == 0 {
				b = int64(d[i*3+1]) + int64(out[(i-1)*3+1])
			} else {
				b = int64(d[i*3+1]) + a
			}
		} else {
			a = int64(d[0])
			b = int64(d[1]) + a
		}
		c := int64(d[i*3+2]) + a
		out[i*3] = uint32(a)
		out[i*3+1] = uint32(b)
		out[i*3+2] = uint32(c)
	}
	return out
}

func (e MG1Encoder) Encode(wt io.Writer, m *ContainerMesh) error {
	lw := newLittleWriter(wt)
	lw.writeTag(sectionIndices)
	packInts(lw, makeIndexDeltas(e.RearrangeTriangles(m.Indices)), 3)
	lw.writeTag(sectionVertices)
	packFloats(lw, m.Vertices, 3)
	if m.HasNormals() {
		lw.writeTag(sectionNormals)
		packFloats(lw, m.Normals, 3)
	}
	for _, uv := range m.UVMaps {
		lw.writeTag(sectionTexCoords)
		lw.writeChannelHeader(uv)
		packFloats(lw, uv.Values, uv.Components)
	}
	for _, at := range m.Attributes {
		lw.writeTag(sectionAttributes)
		lw.writeChannelHeader(at)
		packFloats(lw, at.Values, at.Components)
	}
	return lw.err
}

func decodeMG1Body(lr *littleReader, h *FileHeader) (*ContainerMesh, error) {
	vc := int(h.VertexCount)
	m := &ContainerMesh{}
	lr.expectTag(sectionIndices)
	if d := unpackInts(lr, int(h.TriangleCount)*3, 3); lr.err == nil {
		m.Indices = restoreIndices(d)
	}
	lr.expectTag(sectionVertices)
	m.Vertices = unpackFloats(lr, vc*3, 3)
	if h.HasNormals() {
		lr.expectTag(sectionNormals)
		m.Normals = unpackFloats(lr, vc*3, 3)
	}
	readChannels := func(tag [4]byte, n int32) []*AttributeChannel {
		var chs []*AttributeChannel
		for i := int32(0); i < n; i++ {
			lr.expectTag(tag)
			ch := lr.readChannelHeader()
			if lr.err != nil {
				return nil
			}
			ch.Values = unpackFloats(lr, vc*ch.Components, ch.Components)
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
