package ctm

import (
	"io"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// FloatBuffer is an immutable tuple oriented float array owned by an engine mesh.
// Its contents are only reachable through fresh readers, so no read position is
// ever shared between callers.
type FloatBuffer struct {
	data      []float32
	tupleSize int
}

// NewFloatBuffer copies values into a new buffer of tupleSize wide tuples.
func NewFloatBuffer(values []float32, tupleSize int) *FloatBuffer {
	if tupleSize < 1 {
		tupleSize = 1
	}
	return &FloatBuffer{data: append([]float32(nil), values...), tupleSize: tupleSize}
}

func NewVec3Buffer(values []vec3.T) *FloatBuffer {
	data := make([]float32, 0, len(values)*3)
	for _, v := range values {
		data = append(data, v[0], v[1], v[2])
	}
	return &FloatBuffer{data: data, tupleSize: 3}
}

func NewVec2Buffer(values []vec2.T) *FloatBuffer {
	data := make([]float32, 0, len(values)*2)
	for _, v := range values {
		data = append(data, v[0], v[1])
	}
	return &FloatBuffer{data: data, tupleSize: 2}
}

func (b *FloatBuffer) ValuesPerTuple() int {
	return b.tupleSize
}

func (b *FloatBuffer) TupleCount() int {
	return len(b.data) / b.tupleSize
}

func (b *FloatBuffer) Len() int {
	return len(b.data)
}

// Reader returns a reader positioned at the first value.
func (b *FloatBuffer) Reader() *FloatReader {
	return &FloatReader{buf: b}
}

// Values returns a copy of the whole buffer.
func (b *FloatBuffer) Values() []float32 {
	out := make([]float32, len(b.data))
	b.Reader().Read(out)
	return out
}

func (b *FloatBuffer) Vec3(i int) vec3.T {
	p := i * b.tupleSize
	var v vec3.T
	copy(v[:], b.data[p:p+min(3, b.tupleSize)])
	return v
}

func (b *FloatBuffer) Vec2(i int) vec2.T {
	p := i * b.tupleSize
	var v vec2.T
	copy(v[:], b.data[p:p+min(2, b.tupleSize)])
	return v
}

// FloatReader is a single use cursor over a FloatBuffer.
type FloatReader struct {
	buf *FloatBuffer
	pos int
}

// Read copies the next values into dst and returns io.EOF once drained.
func (r *FloatReader) Read(dst []float32) (int, error) {
	if r.pos >= len(r.buf.data) {
		if len(dst) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(dst, r.buf.data[r.pos:])
	r.pos += n
	return n, nil
}

func (r *FloatReader) Remaining() int {
	return len(r.buf.data) - r.pos
}

// IndexBuffer holds triangle list indices.
type IndexBuffer struct {
	data []uint32
}

func NewIndexBuffer(indices []uint32) *IndexBuffer {
	return &IndexBuffer{data: append([]uint32(nil), indices...)}
}

func (b *IndexBuffer) Len() int {
	return len(b.data)
}

func (b *IndexBuffer) TriangleCount() int {
	return len(b.data) / 3
}

func (b *IndexBuffer) Reader() *IndexReader {
	return &IndexReader{buf: b}
}

func (b *IndexBuffer) Values() []uint32 {
	out := make([]uint32, len(b.data))
	b.Reader().Read(out)
	return out
}

func (b *IndexBuffer) Triangle(i int) [3]uint32 {
	return [3]uint32{b.data[i*3], b.data[i*3+1], b.data[i*3+2]}
}

type IndexReader struct {
	buf *IndexBuffer
	pos int
}

func (r *IndexReader) Read(dst []uint32) (int, error) {
	if r.pos >= len(r.buf.data) {
		if len(dst) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(dst, r.buf.data[r.pos:])
	r.pos += n
	return n, nil
}

func (r *IndexReader) Remaining() int {
	return len(r.buf.data) - r.pos
}

// NamedBuffer is a generic per vertex attribute carried next to the texture units.
type NamedBuffer struct {
	Name      string
	Precision int
	*FloatBuffer
}
