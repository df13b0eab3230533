package ctm

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/qmuntal/gltf"
)

func componentSize(ct gltf.ComponentType) int {
	switch ct {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	}
	return 4
}

func componentCount(tp gltf.AccessorType) int {
	switch tp {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 1
}

// accessorBytes 返回访问器数据所在的字节切片，以及元素步长与元素大小
func accessorBytes(doc *gltf.Document, idx uint32) (*gltf.Accessor, []byte, int, int, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, nil, 0, 0, fmt.Errorf("accessor %d out of range", idx)
	}
	acc := doc.Accessors[idx]
	if acc.BufferView == nil {
		return nil, nil, 0, 0, fmt.Errorf("accessor %d has no buffer view", idx)
	}
	if int(*acc.BufferView) >= len(doc.BufferViews) {
		return nil, nil, 0, 0, fmt.Errorf("buffer view %d out of range", *acc.BufferView)
	}
	view := doc.BufferViews[*acc.BufferView]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil, nil, 0, 0, fmt.Errorf("buffer %d out of range", view.Buffer)
	}
	buffer := doc.Buffers[view.Buffer]

	elem := componentSize(acc.ComponentType) * componentCount(acc.Type)
	stride := int(view.ByteStride)
	if stride == 0 {
		stride = elem
	}
	start := int(view.ByteOffset) + int(acc.ByteOffset)
	end := start
	if acc.Count > 0 {
		end = start + stride*(int(acc.Count)-1) + elem
	}
	viewEnd := int(view.ByteOffset) + int(view.ByteLength)
	if end > viewEnd || viewEnd > len(buffer.Data) {
		return nil, nil, 0, 0, fmt.Errorf("accessor %d exceeds its buffer", idx)
	}
	return acc, buffer.Data[start:end], stride, elem, nil
}

func readGltfFloats(doc *gltf.Document, idx uint32) ([]float32, int, error) {
	acc, data, stride, _, err := accessorBytes(doc, idx)
	if err != nil {
		return nil, 0, err
	}
	if acc.ComponentType != gltf.ComponentFloat {
		return nil, 0, fmt.Errorf("accessor %d: unsupported component type %v", idx, acc.ComponentType)
	}
	comps := componentCount(acc.Type)
	out := make([]float32, 0, int(acc.Count)*comps)
	for i := 0; i < int(acc.Count); i++ {
		p := data[i*stride:]
		for c := 0; c < comps; c++ {
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(p[c*4:])))
		}
	}
	return out, comps, nil
}

func readGltfIndices(doc *gltf.Document, idx uint32) ([]uint32, error) {
	acc, data, stride, _, err := accessorBytes(doc, idx)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, acc.Count)
	for i := range out {
		p := data[i*stride:]
		switch acc.ComponentType {
		case gltf.ComponentUbyte:
			out[i] = uint32(p[0])
		case gltf.ComponentUshort:
			out[i] = uint32(binary.LittleEndian.Uint16(p))
		case gltf.ComponentUint:
			out[i] = binary.LittleEndian.Uint32(p)
		default:
			return nil, fmt.Errorf("accessor %d: unsupported index type %v", idx, acc.ComponentType)
		}
	}
	return out, nil
}

// NewGltfSource 读取 glTF 图元的 POSITION、NORMAL、TEXCOORD_n 与自定义属性
func NewGltfSource(doc *gltf.Document, meshIdx, primIdx int) (*MeshData, error) {
	if doc == nil {
		return nil, &NullSourceError{What: "gltf document"}
	}
	if meshIdx < 0 || meshIdx >= len(doc.Meshes) {
		return nil, &ResourceNotFoundError{Name: fmt.Sprintf("mesh %d", meshIdx)}
	}
	mh := doc.Meshes[meshIdx]
	if primIdx < 0 || primIdx >= len(mh.Primitives) {
		return nil, &ResourceNotFoundError{Name: fmt.Sprintf("mesh %d primitive %d", meshIdx, primIdx)}
	}
	ps := mh.Primitives[primIdx]
	if ps.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("mesh %d primitive %d: only triangle lists are supported", meshIdx, primIdx)
	}

	posIdx, ok := ps.Attributes["POSITION"]
	if !ok {
		return nil, &MissingAttributeError{Attribute: "POSITION"}
	}
	vertices, comps, err := readGltfFloats(doc, posIdx)
	if err != nil {
		return nil, err
	}
	if comps != 3 {
		return nil, fmt.Errorf("POSITION has %d components", comps)
	}
	data := &MeshData{Vertices: NewFloatBuffer(vertices, 3)}

	var indices []uint32
	if ps.Indices != nil {
		if indices, err = readGltfIndices(doc, *ps.Indices); err != nil {
			return nil, err
		}
	} else {
		indices = make([]uint32, len(vertices)/3)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	data.Indices = NewIndexBuffer(indices)

	if idx, ok := ps.Attributes["NORMAL"]; ok {
		normals, _, err := readGltfFloats(doc, idx)
		if err != nil {
			return nil, err
		}
		data.Normals = NewFloatBuffer(normals, 3)
	}

	names := make([]string, 0, len(ps.Attributes))
	for name := range ps.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		idx := ps.Attributes[name]
		switch {
		case strings.HasPrefix(name, "TEXCOORD_"):
			unit, err := strconv.Atoi(strings.TrimPrefix(name, "TEXCOORD_"))
			if err != nil || unit < 0 || unit >= MAX_CHANNEL_COUNT {
				continue
			}
			uv, comps, err := readGltfFloats(doc, idx)
			if err != nil {
				Logger().Sugar().Warnf("gltf mesh %d: %s skipped: %v", meshIdx, name, err)
				continue
			}
			data.SetTextureCoords(NewFloatBuffer(uv, comps), unit)
		case strings.HasPrefix(name, "_"):
			values, comps, err := readGltfFloats(doc, idx)
			if err != nil {
				Logger().Sugar().Warnf("gltf mesh %d: %s skipped: %v", meshIdx, name, err)
				continue
			}
			data.Attributes = append(data.Attributes, &NamedBuffer{
				Name:        strings.ToLower(strings.TrimPrefix(name, "_")),
				FloatBuffer: NewFloatBuffer(values, comps),
			})
		}
	}
	return data, nil
}

// LoadGltf 打开 glTF/GLB 文件，把每个三角形图元构建成一个引擎网格
func LoadGltf(path string) ([]*EngineMesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, &ImportError{Name: path, Cause: err}
	}
	return GltfMeshes(doc)
}

func GltfMeshes(doc *gltf.Document) ([]*EngineMesh, error) {
	var out []*EngineMesh
	for mi, mh := range doc.Meshes {
		for pi, ps := range mh.Primitives {
			if ps.Mode != gltf.PrimitiveTriangles {
				continue
			}
			name := mh.Name
			if name == "" {
				name = fmt.Sprintf("mesh%d", mi)
			}
			if len(mh.Primitives) > 1 {
				name = fmt.Sprintf("%s_%d", name, pi)
			}
			data, err := NewGltfSource(doc, mi, pi)
			if err != nil {
				return nil, &ImportError{Name: name, Cause: err}
			}
			m, err := Extract(data)
			if err != nil {
				return nil, &ImportError{Name: name, Cause: err}
			}
			em, err := Build(m, name)
			if err != nil {
				return nil, err
			}
			out = append(out, em)
		}
	}
	return out, nil
}
