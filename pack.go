package ctm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ulikunitz/xz/lzma"
)

// 压缩块上限
const MAX_PACKED_SIZE = 1 << 30

// lzmaHeaderSize is the classic LZMA header: properties, dictionary size and
// uncompressed size.
const lzmaHeaderSize = 13

// interleave reorders element major values (x0 y0 z0 x1 ...) into component
// planes (x0 x1 ... y0 y1 ...), which LZMA compresses considerably better.
func interleave(values []uint32, components int) []uint32 {
	n := len(values) / components
	out := make([]uint32, len(values))
	for i := 0; i < n; i++ {
		for c := 0; c < components; c++ {
			out[c*n+i] = values[i*components+c]
		}
	}
	return out
}

func deinterleave(values []uint32, components int) []uint32 {
	n := len(values) / components
	out := make([]uint32, len(values))
	for i := 0; i < n; i++ {
		for c := 0; c < components; c++ {
			out[i*components+c] = values[c*n+i]
		}
	}
	return out
}

func packWords(lw *littleWriter, words []uint32, components int) {
	if lw.err != nil {
		return
	}
	raw := make([]byte, len(words)*4)
	for i, w := range interleave(words, components) {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}

	var packed bytes.Buffer
	cfg := lzma.WriterConfig{DictCap: dictCapFor(len(raw))}
	zw, err := cfg.NewWriter(&packed)
	if err != nil {
		lw.err = err
		return
	}
	if _, err := zw.Write(raw); err != nil {
		lw.err = err
		return
	}
	if err := zw.Close(); err != nil {
		lw.err = err
		return
	}
	lw.write(uint32(packed.Len()))
	lw.writeBytes(packed.Bytes())
}

func unpackWords(lr *littleReader, count, components int) []uint32 {
	size := lr.readUint32()
	if lr.err != nil {
		return nil
	}
	if size > MAX_PACKED_SIZE {
		lr.fail(fmt.Errorf("packed block size %d exceeds limit", size))
		return nil
	}
	var packed bytes.Buffer
	if _, err := io.CopyN(&packed, lr.rd, int64(size)); err != nil {
		lr.fail(asTruncated(err))
		return nil
	}
	if b := packed.Bytes(); len(b) >= lzmaHeaderSize {
		if dc := binary.LittleEndian.Uint32(b[1:5]); int64(dc) > int64(dictCapFor(count*4)) {
			lr.fail(fmt.Errorf("lzma: dictionary size %d too large for %d values", dc, count))
			return nil
		}
	}
	zr, err := lzma.ReaderConfig{DictCap: lzma.MinDictCap}.NewReader(&packed)
	if err != nil {
		lr.fail(fmt.Errorf("lzma: %w", err))
		return nil
	}
	// the output buffer grows with what the stream produces, never beyond count
	raw, err := io.ReadAll(io.LimitReader(zr, int64(count)*4))
	if err != nil {
		lr.fail(fmt.Errorf("lzma: %w", asTruncated(err)))
		return nil
	}
	if len(raw) != count*4 {
		lr.fail(fmt.Errorf("lzma: %w", io.ErrUnexpectedEOF))
		return nil
	}
	words := make([]uint32, count)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return deinterleave(words, components)
}

// dictCapFor sizes the LZMA dictionary to the block it compresses.
func dictCapFor(n int) int {
	return min(max(n, lzma.MinDictCap), 1<<23)
}

func packFloats(lw *littleWriter, values []float32, components int) {
	words := make([]uint32, len(values))
	for i, v := range values {
		words[i] = math.Float32bits(v)
	}
	packWords(lw, words, components)
}

func unpackFloats(lr *littleReader, count, components int) []float32 {
	words := unpackWords(lr, count, components)
	if words == nil {
		return nil
	}
	out := make([]float32, len(words))
	for i, w := range words {
		out[i] = math.Float32frombits(w)
	}
	return out
}

func packInts(lw *littleWriter, values []int32, components int) {
	words := make([]uint32, len(values))
	for i, v := range values {
		words[i] = uint32(v)
	}
	packWords(lw, words, components)
}

func unpackInts(lr *littleReader, count, components int) []int32 {
	words := unpackWords(lr, count, components)
	if words == nil {
		return nil
	}
	out := make([]int32, len(words))
	for i, w := range words {
		out[i] = int32(w)
	}
	return out
}
