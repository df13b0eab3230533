package ctm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func writeLittleByte(wt io.Writer, v interface{}) error {
	return binary.Write(wt, binary.LittleEndian, v)
}

func readLittleByte(rd io.Reader, v interface{}) error {
	return binary.Read(rd, binary.LittleEndian, v)
}

// littleWriter latches the first write error so sections can be written
// without checking every field.
type littleWriter struct {
	wt  io.Writer
	err error
}

func newLittleWriter(wt io.Writer) *littleWriter {
	return &littleWriter{wt: wt}
}

func (lw *littleWriter) write(v interface{}) {
	if lw.err != nil {
		return
	}
	lw.err = writeLittleByte(lw.wt, v)
}

func (lw *littleWriter) writeTag(tag [4]byte) {
	lw.write(tag[:])
}

func (lw *littleWriter) writeString(s string) {
	lw.write(uint32(len(s)))
	if lw.err == nil && len(s) > 0 {
		_, lw.err = lw.wt.Write([]byte(s))
	}
}

func (lw *littleWriter) writeBytes(b []byte) {
	if lw.err != nil {
		return
	}
	_, lw.err = lw.wt.Write(b)
}

func (lw *littleWriter) writeChannelHeader(ch *AttributeChannel) {
	lw.writeString(ch.Name)
	lw.writeString(ch.Filename)
	lw.write(uint32(ch.Components))
	lw.write(uint32(ch.Precision))
}

type littleReader struct {
	rd  io.Reader
	err error
}

func newLittleReader(rd io.Reader) *littleReader {
	return &littleReader{rd: rd}
}

func (lr *littleReader) fail(err error) {
	if lr.err == nil {
		lr.err = err
	}
}

func (lr *littleReader) read(v interface{}) {
	if lr.err != nil {
		return
	}
	if err := readLittleByte(lr.rd, v); err != nil {
		lr.fail(asTruncated(err))
	}
}

func (lr *littleReader) readUint32() uint32 {
	var v uint32
	lr.read(&v)
	return v
}

func (lr *littleReader) readInt32() int32 {
	var v int32
	lr.read(&v)
	return v
}

func (lr *littleReader) readFloat32() float32 {
	var v float32
	lr.read(&v)
	return v
}

func (lr *littleReader) readTag() [4]byte {
	var tag [4]byte
	lr.read(tag[:])
	return tag
}

func (lr *littleReader) expectTag(tag [4]byte) {
	got := lr.readTag()
	if lr.err == nil && got != tag {
		lr.fail(fmt.Errorf("expected section %q, got %q", tag[:], got[:]))
	}
}

func (lr *littleReader) readString() string {
	n := lr.readUint32()
	if lr.err != nil {
		return ""
	}
	if n > MAX_STRING_LENGTH {
		lr.fail(fmt.Errorf("string length %d exceeds limit", n))
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(lr.rd, buf); err != nil {
		lr.fail(asTruncated(err))
		return ""
	}
	return string(buf)
}

// 分块读取的元素数量，按实际读到的数据增长内存
const readChunk = 1 << 14

// readArray reads n little endian values in chunks so a corrupt count cannot
// allocate more than the input actually holds.
func readArray[T float32 | uint32](lr *littleReader, n int) []T {
	if lr.err != nil {
		return nil
	}
	out := make([]T, 0, min(n, readChunk))
	chunk := make([]T, min(n, readChunk))
	for len(out) < n {
		part := chunk[:min(n-len(out), len(chunk))]
		lr.read(part)
		if lr.err != nil {
			return nil
		}
		out = append(out, part...)
	}
	return out
}

func (lr *littleReader) readFloats(n int) []float32 {
	return readArray[float32](lr, n)
}

func (lr *littleReader) readUint32s(n int) []uint32 {
	return readArray[uint32](lr, n)
}

func (lr *littleReader) readChannelHeader() *AttributeChannel {
	ch := &AttributeChannel{}
	ch.Name = lr.readString()
	ch.Filename = lr.readString()
	comps := lr.readUint32()
	prec := lr.readUint32()
	if lr.err != nil {
		return nil
	}
	if comps < 1 || comps > MAX_COMPONENTS {
		lr.fail(fmt.Errorf("channel %q has invalid component count %d", ch.Name, comps))
		return nil
	}
	if prec > MAX_PRECISION {
		lr.fail(fmt.Errorf("channel %q has invalid precision %d", ch.Name, prec))
		return nil
	}
	ch.Components = int(comps)
	ch.Precision = int(prec)
	return ch
}

func asTruncated(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// MeshReadFrom decodes the container file at path.
func MeshReadFrom(path string) (*ContainerMesh, error) {
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return NewReader(f).Decode()
}

// MeshWriteTo encodes ms into a file at path, creating parent directories.
func MeshWriteTo(path string, ms *ContainerMesh, comment string, tier CompressionTier) error {
	data, err := Encode(ms, comment, tier)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
