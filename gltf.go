package ctm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/qmuntal/gltf"
)

const (
	// GLTFVersion 定义GLTF规范版本
	GLTFVersion = "2.0"

	// PaddingChar 用于二进制填充的字符
	PaddingChar = 0x20
)

// MeshToGltf 将引擎网格转换为GLTF文档
func MeshToGltf(meshes []*EngineMesh) (*gltf.Document, error) {
	doc := CreateDoc()
	for _, mesh := range meshes {
		if err := BuildGltf(doc, mesh); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// CreateDoc 创建一个新的GLTF文档
func CreateDoc() *gltf.Document {
	doc := &gltf.Document{
		Asset: gltf.Asset{
			Version:   GLTFVersion,
			Generator: "go-openctm",
		},
		Scenes:  []*gltf.Scene{{}},
		Buffers: []*gltf.Buffer{{}},
	}

	sceneIndex := uint32(0)
	doc.Scene = &sceneIndex

	return doc
}

// bufferWriter 用于计算缓冲区大小的写入器
type bufferWriter struct {
	writer io.Writer
	size   int
}

func (w *bufferWriter) Write(p []byte) (int, error) {
	n, err := w.writer.Write(p)
	w.size += n
	return n, err
}

func (w *bufferWriter) Bytes() []byte {
	return w.writer.(*bytes.Buffer).Bytes()
}

func (w *bufferWriter) Size() int {
	return w.size
}

func newBufferWriter() *bufferWriter {
	return &bufferWriter{
		writer: bytes.NewBuffer(nil),
	}
}

// calcPadding 计算需要的填充字节数
func calcPadding(offset, unit int) int {
	if unit <= 0 {
		return 0
	}
	padding := offset % unit
	if padding != 0 {
		padding = unit - padding
	}
	return padding
}

// GetGltfBinary 将GLTF文档编码为GLB，并按 paddingUnit 对齐总长度
func GetGltfBinary(doc *gltf.Document, paddingUnit int) ([]byte, error) {
	writer := newBufferWriter()

	encoder := gltf.NewEncoder(writer)
	encoder.AsBinary = true

	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}

	padding := calcPadding(writer.Size(), paddingUnit)
	if padding == 0 {
		return writer.Bytes(), nil
	}

	pad := bytes.Repeat([]byte{PaddingChar}, padding)
	writer.Write(pad)

	return writer.Bytes(), nil
}

// gltfAttributeName 自定义属性按 glTF 约定加下划线前缀
func gltfAttributeName(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if strings.HasPrefix(n, "_") {
		return n
	}
	return "_" + n
}

func accessorType(components int) (gltf.AccessorType, bool) {
	switch components {
	case 1:
		return gltf.AccessorScalar, true
	case 2:
		return gltf.AccessorVec2, true
	case 3:
		return gltf.AccessorVec3, true
	case 4:
		return gltf.AccessorVec4, true
	}
	return gltf.AccessorScalar, false
}

// appendView 把 data 写入 0 号缓冲区并返回新的缓冲区视图索引
func appendView(doc *gltf.Document, data interface{}, target gltf.Target) uint32 {
	buffer := doc.Buffers[0]
	buf := bytes.NewBuffer(nil)
	binary.Write(buf, binary.LittleEndian, data)

	view := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: buffer.ByteLength,
		ByteLength: uint32(buf.Len()),
		Target:     target,
	}
	buffer.ByteLength += uint32(buf.Len())
	buffer.Data = append(buffer.Data, buf.Bytes()...)

	doc.BufferViews = append(doc.BufferViews, view)
	return uint32(len(doc.BufferViews) - 1)
}

func appendFloatAccessor(doc *gltf.Document, b *FloatBuffer, tp gltf.AccessorType) uint32 {
	view := appendView(doc, b.Values(), gltf.TargetArrayBuffer)
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    uint32Ptr(view),
		ComponentType: gltf.ComponentFloat,
		Type:          tp,
		Count:         uint32(b.TupleCount()),
	})
	return uint32(len(doc.Accessors) - 1)
}

// BuildGltf 把一个引擎网格作为单图元网格和节点追加到文档
func BuildGltf(doc *gltf.Document, mesh *EngineMesh) error {
	if mesh == nil || mesh.Data == nil {
		return &NullSourceError{What: "engine mesh"}
	}
	vertices, err := ReadVertices(mesh)
	if err != nil {
		return err
	}
	indices, err := ReadIndices(mesh)
	if err != nil {
		return err
	}
	if len(doc.Buffers) == 0 {
		doc.Buffers = []*gltf.Buffer{{}}
	}
	if len(doc.Scenes) == 0 {
		doc.Scenes = []*gltf.Scene{{}}
	}

	// 索引数据
	indexView := appendView(doc, indices, gltf.TargetElementArrayBuffer)
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    uint32Ptr(indexView),
		ComponentType: gltf.ComponentUint,
		Type:          gltf.AccessorScalar,
		Count:         uint32(len(indices)),
	})
	indexAccessor := uint32(len(doc.Accessors) - 1)

	// 顶点位置数据
	bounds := boundsOf(vertices)
	posView := appendView(doc, vertices, gltf.TargetArrayBuffer)
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    uint32Ptr(posView),
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec3,
		Count:         uint32(len(vertices) / 3),
		Min:           []float32{float32(bounds[0]), float32(bounds[1]), float32(bounds[2])},
		Max:           []float32{float32(bounds[3]), float32(bounds[4]), float32(bounds[5])},
	})
	attributes := gltf.Attribute{"POSITION": uint32(len(doc.Accessors) - 1)}

	if n := mesh.NormalCoords(); n != nil {
		attributes["NORMAL"] = appendFloatAccessor(doc, n, gltf.AccessorVec3)
	}

	unit := 0
	for i := 0; i < mesh.TextureUnitCount(); i++ {
		tc := mesh.TextureCoords(i)
		if tc == nil {
			continue
		}
		if tc.ValuesPerTuple() != 2 {
			Logger().Sugar().Warnf("gltf export of '%s': texture unit %d has %d components, skipped", mesh.Name, i, tc.ValuesPerTuple())
			continue
		}
		attributes[fmt.Sprintf("TEXCOORD_%d", unit)] = appendFloatAccessor(doc, tc, gltf.AccessorVec2)
		unit++
	}

	for _, at := range mesh.AttributeBuffers() {
		if at == nil || at.FloatBuffer == nil {
			continue
		}
		tp, ok := accessorType(at.ValuesPerTuple())
		if !ok {
			Logger().Sugar().Warnf("gltf export of '%s': attribute %s has %d components, skipped", mesh.Name, at.Name, at.ValuesPerTuple())
			continue
		}
		attributes[gltfAttributeName(at.Name)] = appendFloatAccessor(doc, at.FloatBuffer, tp)
	}

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: mesh.Name,
		Primitives: []*gltf.Primitive{{
			Indices:    uint32Ptr(indexAccessor),
			Mode:       gltf.PrimitiveTriangles,
			Attributes: attributes,
		}},
	})
	meshIndex := uint32(len(doc.Meshes) - 1)

	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: mesh.Name, Mesh: &meshIndex})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	return nil
}

// uint32Ptr 返回uint32指针的辅助函数
func uint32Ptr(v uint32) *uint32 {
	return &v
}
