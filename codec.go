package ctm

import (
	"bytes"
	"fmt"
	"io"
)

// MeshEncoder writes the tier specific body of a container.
type MeshEncoder interface {
	Tier() CompressionTier
	Encode(wt io.Writer, m *ContainerMesh) error
}

type bodyDecoder func(lr *littleReader, h *FileHeader) (*ContainerMesh, error)

var bodyDecoders = map[CompressionTier]bodyDecoder{
	Raw:   decodeRawBody,
	Tier1: decodeMG1Body,
	Tier2: decodeMG2Body,
}

// EncoderOptions tunes the lossy tier. Zero values select the defaults.
type EncoderOptions struct {
	VertexPrecision int `yaml:"vertex_precision"`
	NormalPrecision int `yaml:"normal_precision"`
}

// EncoderFor returns the encoder implementing tier.
func EncoderFor(tier CompressionTier, opts EncoderOptions) (MeshEncoder, error) {
	switch tier {
	case Raw:
		return RawEncoder{}, nil
	case Tier1:
		return MG1Encoder{}, nil
	case Tier2:
		return MG2Encoder{VertexPrecision: opts.VertexPrecision, NormalPrecision: opts.NormalPrecision}, nil
	}
	return nil, encodeError(fmt.Sprintf("unsupported compression tier %s", tier), nil)
}

// Writer encodes container meshes with a fixed encoder.
type Writer struct {
	wt  io.Writer
	enc MeshEncoder
}

func NewWriter(wt io.Writer, enc MeshEncoder) *Writer {
	return &Writer{wt: wt, enc: enc}
}

func (w *Writer) Encode(m *ContainerMesh, comment string) error {
	if m == nil {
		return encodeError("nil mesh", nil)
	}
	if w.enc == nil {
		return encodeError("no encoder", nil)
	}
	if err := m.Validate(); err != nil {
		return encodeError("invalid mesh", err)
	}
	if err := checkLimits(m); err != nil {
		return encodeError("mesh exceeds container limits", err)
	}
	if len(comment) > MAX_STRING_LENGTH {
		return encodeError("comment too long", nil)
	}
	lw := newLittleWriter(w.wt)
	FileHeaderMarshal(lw, newFileHeader(m, comment, w.enc.Tier()))
	if lw.err != nil {
		return encodeError("header", lw.err)
	}
	if err := w.enc.Encode(w.wt, m); err != nil {
		return encodeError(w.enc.Tier().String(), err)
	}
	return nil
}

// checkLimits rejects meshes the decoder would refuse to read back.
func checkLimits(m *ContainerMesh) error {
	switch {
	case m.VertexCount() > MAX_VERTEX_COUNT:
		return meshError("vertices", "%d vertices exceed %d", m.VertexCount(), MAX_VERTEX_COUNT)
	case m.TriangleCount() > MAX_TRIANGLE_COUNT:
		return meshError("indices", "%d triangles exceed %d", m.TriangleCount(), MAX_TRIANGLE_COUNT)
	}
	if err := checkChannelLimits("uv map", m.UVMaps); err != nil {
		return err
	}
	return checkChannelLimits("attribute map", m.Attributes)
}

func checkChannelLimits(field string, chs []*AttributeChannel) error {
	if len(chs) > MAX_CHANNEL_COUNT {
		return meshError(field, "%d channels exceed %d", len(chs), MAX_CHANNEL_COUNT)
	}
	for i, ch := range chs {
		switch {
		case ch.Components > MAX_COMPONENTS:
			return meshError(field, "channel %d (%s) has %d components, limit %d", i, ch.Name, ch.Components, MAX_COMPONENTS)
		case ch.Precision < 0 || ch.Precision > MAX_PRECISION:
			return meshError(field, "channel %d (%s) has precision %d, want 0..%d", i, ch.Name, ch.Precision, MAX_PRECISION)
		case len(ch.Name) > MAX_STRING_LENGTH:
			return meshError(field, "channel %d name is %d bytes long", i, len(ch.Name))
		case len(ch.Filename) > MAX_STRING_LENGTH:
			return meshError(field, "channel %d (%s) filename is %d bytes long", i, ch.Name, len(ch.Filename))
		}
	}
	return nil
}

// Reader decodes one container mesh from a stream.
type Reader struct {
	rd     io.Reader
	header *FileHeader
}

func NewReader(rd io.Reader) *Reader {
	return &Reader{rd: rd}
}

// Header returns the header of the last successful Decode.
func (r *Reader) Header() *FileHeader {
	return r.header
}

// Decode reads a full container. On any failure it returns a *CodecError and
// no mesh.
func (r *Reader) Decode() (*ContainerMesh, error) {
	lr := newLittleReader(r.rd)
	h, err := FileHeaderUnMarshal(lr)
	if err != nil {
		return nil, decodeError("header", err)
	}
	dec := bodyDecoders[h.Tier]
	m, err := dec(lr, h)
	if err != nil {
		return nil, decodeError(h.Tier.String()+" body", err)
	}
	if err := checkAgainstHeader(m, h); err != nil {
		return nil, decodeError("inconsistent mesh", err)
	}
	if err := m.Validate(); err != nil {
		return nil, decodeError("invalid mesh", err)
	}
	r.header = h
	return m, nil
}

func checkAgainstHeader(m *ContainerMesh, h *FileHeader) error {
	switch {
	case m.VertexCount() != int(h.VertexCount):
		return fmt.Errorf("vertex count %d, header says %d", m.VertexCount(), h.VertexCount)
	case m.TriangleCount() != int(h.TriangleCount):
		return fmt.Errorf("triangle count %d, header says %d", m.TriangleCount(), h.TriangleCount)
	case m.HasNormals() != h.HasNormals():
		return fmt.Errorf("normal presence %v, header says %v", m.HasNormals(), h.HasNormals())
	case len(m.UVMaps) != int(h.UVMapCount):
		return fmt.Errorf("uv map count %d, header says %d", len(m.UVMaps), h.UVMapCount)
	case len(m.Attributes) != int(h.AttrMapCount):
		return fmt.Errorf("attribute map count %d, header says %d", len(m.Attributes), h.AttrMapCount)
	}
	return nil
}

// Codec is the byte level contract the importer and the verifier depend on.
type Codec interface {
	Encode(m *ContainerMesh, comment string, tier CompressionTier) ([]byte, error)
	Decode(data []byte) (*ContainerMesh, error)
}

// EncoderProvider is implemented by codecs that can hand out their encoders,
// which lets callers reach tier specific transforms such as triangle reordering.
type EncoderProvider interface {
	Encoder(tier CompressionTier) (MeshEncoder, error)
}

// DefaultCodec implements Codec with the built in encoders.
type DefaultCodec struct {
	Options EncoderOptions
}

func NewCodec(opts EncoderOptions) *DefaultCodec {
	return &DefaultCodec{Options: opts}
}

func (c *DefaultCodec) Encoder(tier CompressionTier) (MeshEncoder, error) {
	return EncoderFor(tier, c.Options)
}

func (c *DefaultCodec) Encode(m *ContainerMesh, comment string, tier CompressionTier) ([]byte, error) {
	enc, err := c.Encoder(tier)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := NewWriter(&buf, enc).Encode(m, comment); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *DefaultCodec) Decode(data []byte) (*ContainerMesh, error) {
	return NewReader(bytes.NewReader(data)).Decode()
}

var defaultCodec = &DefaultCodec{}

// Encode serializes m with the default options of tier.
func Encode(m *ContainerMesh, comment string, tier CompressionTier) ([]byte, error) {
	return defaultCodec.Encode(m, comment, tier)
}

func Decode(data []byte) (*ContainerMesh, error) {
	return defaultCodec.Decode(data)
}
