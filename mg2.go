package ctm

import (
	"fmt"
	"io"
	"math"
)

// MG2Encoder quantizes positions on a fixed grid anchored at the bounding box
// minimum. Normals and channels are quantized with their own step sizes, so only
// aggregate geometry survives a round trip.
type MG2Encoder struct {
	VertexPrecision int
	NormalPrecision int
}

func (MG2Encoder) Tier() CompressionTier {
	return Tier2
}

func (MG2Encoder) RearrangeTriangles(indices []uint32) []uint32 {
	return MG1Encoder{}.RearrangeTriangles(indices)
}

func precisionStep(bits int) float64 {
	return math.Ldexp(1, -bits)
}

func (e MG2Encoder) vertexStep() float64 {
	if e.VertexPrecision > 0 {
		return precisionStep(e.VertexPrecision)
	}
	return precisionStep(DEFAULT_VERTEX_PRECISION)
}

func (e MG2Encoder) normalStep() float64 {
	if e.NormalPrecision > 0 {
		return precisionStep(e.NormalPrecision)
	}
	return precisionStep(DEFAULT_NORMAL_PRECISION)
}

func quantizeCoordinate(v float32, min, step float64) (int32, error) {
	q := math.Round((float64(v) - min) / step)
	if math.IsNaN(q) || q > math.MaxInt32 || q < math.MinInt32 {
		return 0, fmt.Errorf("value %v does not fit the quantization grid (step %v)", v, step)
	}
	return int32(q), nil
}

func dequantizeCoordinate(q int32, min, step float64) float32 {
	return float32(min + float64(q)*step)
}

func quantizeAll(values []float32, comps int, mins []float64, step float64) ([]int32, error) {
	out := make([]int32, len(values))
	for i, v := range values {
		q, err := quantizeCoordinate(v, mins[i%comps], step)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

func dequantizeAll(qs []int32, comps int, mins []float64, step float64) []float32 {
	out := make([]float32, len(qs))
	for i, q := range qs {
		out[i] = dequantizeCoordinate(q, mins[i%comps], step)
	}
	return out
}

func zeros(n int) []float64 {
	return make([]float64, n)
}

func (e MG2Encoder) Encode(wt io.Writer, m *ContainerMesh) error {
	bx := m.GetBoundbox()
	vStep := e.vertexStep()
	nStep := e.normalStep()
	mins := []float64{float64(float32(bx[0])), float64(float32(bx[1])), float64(float32(bx[2]))}

	lw := newLittleWriter(wt)
	lw.writeTag(sectionMG2Header)
	lw.write(vStep)
	lw.write(nStep)
	lw.write(mins)

	qv, err := quantizeAll(m.Vertices, 3, mins, vStep)
	if err != nil {
		return fmt.Errorf("vertices: %w", err)
	}
	lw.writeTag(sectionVertices)
	packInts(lw, qv, 3)

	lw.writeTag(sectionIndices)
	packInts(lw, makeIndexDeltas(e.RearrangeTriangles(m.Indices)), 3)

	if m.HasNormals() {
		qn, err := quantizeAll(m.Normals, 3, zeros(3), nStep)
		if err != nil {
			return fmt.Errorf("normals: %w", err)
		}
		lw.writeTag(sectionNormals)
		packInts(lw, qn, 3)
	}

	writeChannel := func(tag [4]byte, ch *AttributeChannel, def int) error {
		q, err := quantizeAll(ch.Values, ch.Components, zeros(ch.Components), precisionStep(ch.precisionOr(def)))
		if err != nil {
			return fmt.Errorf("channel %s: %w", ch.Name, err)
		}
		lw.writeTag(tag)
		lw.writeChannelHeader(ch)
		packInts(lw, q, ch.Components)
		return nil
	}
	for _, uv := range m.UVMaps {
		if err := writeChannel(sectionTexCoords, uv, DEFAULT_UV_PRECISION); err != nil {
			return err
		}
	}
	for _, at := range m.Attributes {
		if err := writeChannel(sectionAttributes, at, DEFAULT_ATTRIBUTE_PRECISION); err != nil {
			return err
		}
	}
	return lw.err
}

func validStep(s float64) bool {
	return s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s)
}

func decodeMG2Body(lr *littleReader, h *FileHeader) (*ContainerMesh, error) {
	vc := int(h.VertexCount)
	lr.expectTag(sectionMG2Header)
	var vStep, nStep float64
	mins := make([]float64, 3)
	lr.read(&vStep)
	lr.read(&nStep)
	lr.read(mins)
	if lr.err != nil {
		return nil, lr.err
	}
	if !validStep(vStep) || !validStep(nStep) {
		return nil, fmt.Errorf("invalid quantization steps %v/%v", vStep, nStep)
	}

	m := &ContainerMesh{}
	lr.expectTag(sectionVertices)
	if q := unpackInts(lr, vc*3, 3); lr.err == nil {
		m.Vertices = dequantizeAll(q, 3, mins, vStep)
	}
	lr.expectTag(sectionIndices)
	if d := unpackInts(lr, int(h.TriangleCount)*3, 3); lr.err == nil {
		m.Indices = restoreIndices(d)
	}
	if h.HasNormals() {
		lr.expectTag(sectionNormals)
		if q := unpackInts(lr, vc*3, 3); lr.err == nil {
			m.Normals = dequantizeAll(q, 3, zeros(3), nStep)
		}
	}
	readChannels := func(tag [4]byte, n int32, def int) []*AttributeChannel {
		var chs []*AttributeChannel
		for i := int32(0); i < n; i++ {
			lr.expectTag(tag)
			ch := lr.readChannelHeader()
			if lr.err != nil {
				return nil
			}
			q := unpackInts(lr, vc*ch.Components, ch.Components)
			if lr.err != nil {
				return nil
			}
			ch.Values = dequantizeAll(q, ch.Components, zeros(ch.Components), precisionStep(ch.precisionOr(def)))
			chs = append(chs, ch)
		}
		return chs
	}
	m.UVMaps = readChannels(sectionTexCoords, h.UVMapCount, DEFAULT_UV_PRECISION)
	m.Attributes = readChannels(sectionAttributes, h.AttrMapCount, DEFAULT_ATTRIBUTE_PRECISION)
	if lr.err != nil {
		return nil, lr.err
	}
	return m, nil
}
