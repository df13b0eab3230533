package ctm

import (
	"fmt"
)

// FileHeader 容器文件头
type FileHeader struct {
	Version       int32
	Method        [4]byte
	Tier          CompressionTier
	VertexCount   int32
	TriangleCount int32
	UVMapCount    int32
	AttrMapCount  int32
	Flags         int32
	Comment       string
}

func (h *FileHeader) HasNormals() bool {
	return h.Flags&FLAG_HAS_NORMALS != 0
}

func newFileHeader(m *ContainerMesh, comment string, tier CompressionTier) *FileHeader {
	h := &FileHeader{
		Version:       FORMAT_VERSION,
		Method:        tier.Method(),
		Tier:          tier,
		VertexCount:   int32(m.VertexCount()),
		TriangleCount: int32(m.TriangleCount()),
		UVMapCount:    int32(len(m.UVMaps)),
		AttrMapCount:  int32(len(m.Attributes)),
		Comment:       comment,
	}
	if m.HasNormals() {
		h.Flags |= FLAG_HAS_NORMALS
	}
	return h
}

func FileHeaderMarshal(lw *littleWriter, h *FileHeader) {
	lw.writeBytes([]byte(CTM_SIGNATURE))
	lw.write(h.Version)
	lw.writeTag(h.Method)
	lw.write(h.VertexCount)
	lw.write(h.TriangleCount)
	lw.write(h.UVMapCount)
	lw.write(h.AttrMapCount)
	lw.write(h.Flags)
	lw.writeString(h.Comment)
}

func FileHeaderUnMarshal(lr *littleReader) (*FileHeader, error) {
	sig := lr.readTag()
	if lr.err != nil {
		return nil, lr.err
	}
	if string(sig[:]) != CTM_SIGNATURE {
		return nil, fmt.Errorf("bad signature %q", sig[:])
	}
	h := &FileHeader{}
	h.Version = lr.readInt32()
	h.Method = lr.readTag()
	h.VertexCount = lr.readInt32()
	h.TriangleCount = lr.readInt32()
	h.UVMapCount = lr.readInt32()
	h.AttrMapCount = lr.readInt32()
	h.Flags = lr.readInt32()
	h.Comment = lr.readString()
	if lr.err != nil {
		return nil, lr.err
	}

	if h.Version != FORMAT_VERSION {
		return nil, fmt.Errorf("unsupported format version %d", h.Version)
	}
	tier, ok := tierForMethod(h.Method)
	if !ok {
		return nil, fmt.Errorf("unknown compression method %q", h.Method[:])
	}
	h.Tier = tier
	switch {
	case h.VertexCount < 0 || h.VertexCount > MAX_VERTEX_COUNT:
		return nil, fmt.Errorf("invalid vertex count %d", h.VertexCount)
	case h.TriangleCount < 0 || h.TriangleCount > MAX_TRIANGLE_COUNT:
		return nil, fmt.Errorf("invalid triangle count %d", h.TriangleCount)
	case h.UVMapCount < 0 || h.UVMapCount > MAX_CHANNEL_COUNT:
		return nil, fmt.Errorf("invalid uv map count %d", h.UVMapCount)
	case h.AttrMapCount < 0 || h.AttrMapCount > MAX_CHANNEL_COUNT:
		return nil, fmt.Errorf("invalid attribute map count %d", h.AttrMapCount)
	}
	return h, nil
}
