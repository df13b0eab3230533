package ctm

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/qmuntal/gltf"
)

// TestCreateDoc 测试CreateDoc函数是否正确创建GLTF文档
func TestCreateDoc(t *testing.T) {
	doc := CreateDoc()

	if doc.Asset.Version != GLTFVersion {
		t.Errorf("Expected GLTF version %s, got %s", GLTFVersion, doc.Asset.Version)
	}
	if len(doc.Scenes) != 1 {
		t.Errorf("Expected 1 scene, got %d", len(doc.Scenes))
	}
	if doc.Scene == nil || *doc.Scene != 0 {
		t.Error("Scene index should be 0")
	}
	if len(doc.Buffers) != 1 {
		t.Errorf("Expected 1 buffer, got %d", len(doc.Buffers))
	}
}

// TestMeshToGltf 测试引擎网格到GLTF的转换
func TestMeshToGltf(t *testing.T) {
	meshes := []*EngineMesh{NewBoxMesh("box", 1, 1, 1), NewSphereMesh("sphere", 1, 4, 8)}
	doc, err := MeshToGltf(meshes)
	if err != nil {
		t.Fatalf("MeshToGltf failed: %v", err)
	}
	if len(doc.Meshes) != 2 || len(doc.Nodes) != 2 || len(doc.Scenes[0].Nodes) != 2 {
		t.Fatalf("Expected 2 meshes and nodes, got %d/%d", len(doc.Meshes), len(doc.Nodes))
	}
	if doc.Meshes[1].Name != "sphere" {
		t.Errorf("Expected mesh name sphere, got %s", doc.Meshes[1].Name)
	}

	attrs := doc.Meshes[1].Primitives[0].Attributes
	for _, name := range []string{"POSITION", "NORMAL", "TEXCOORD_0", "_HEIGHT"} {
		if _, ok := attrs[name]; !ok {
			t.Errorf("Expected attribute %s", name)
		}
	}

	pos := doc.Accessors[attrs["POSITION"]]
	if pos.Type != gltf.AccessorVec3 || pos.Count != uint32(meshes[1].Data.VertexCount()) {
		t.Errorf("POSITION accessor = %v x %d", pos.Type, pos.Count)
	}
	if len(pos.Min) != 3 || pos.Min[1] != -1 || pos.Max[1] != 1 {
		t.Errorf("POSITION bounds = %v - %v", pos.Min, pos.Max)
	}

	var total uint32
	for _, v := range doc.BufferViews {
		if v.ByteOffset%4 != 0 {
			t.Errorf("buffer view offset %d not 4 byte aligned", v.ByteOffset)
		}
		total += v.ByteLength
	}
	if total != doc.Buffers[0].ByteLength || int(total) != len(doc.Buffers[0].Data) {
		t.Errorf("buffer length = %d/%d, views cover %d", doc.Buffers[0].ByteLength, len(doc.Buffers[0].Data), total)
	}

	if err := BuildGltf(doc, nil); err == nil {
		t.Error("BuildGltf(nil) succeeded")
	}
}

// TestGltfSourceRoundTrip 测试导出后再读取的属性一致
func TestGltfSourceRoundTrip(t *testing.T) {
	for _, em := range SampleMeshes() {
		t.Run(em.Name, func(t *testing.T) {
			doc, err := MeshToGltf([]*EngineMesh{em})
			if err != nil {
				t.Fatalf("MeshToGltf failed: %v", err)
			}
			data, err := NewGltfSource(doc, 0, 0)
			if err != nil {
				t.Fatalf("NewGltfSource failed: %v", err)
			}
			want, _ := Extract(em)
			got, err := Extract(data)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Error("glTF round trip changed the mesh")
			}
		})
	}
}

func TestGltfMeshes(t *testing.T) {
	doc, _ := MeshToGltf([]*EngineMesh{NewPyramidMesh("pyramid", 1, 1)})
	ms, err := GltfMeshes(doc)
	if err != nil {
		t.Fatalf("GltfMeshes failed: %v", err)
	}
	if len(ms) != 1 || ms[0].Name != "pyramid" {
		t.Fatalf("GltfMeshes() = %d meshes", len(ms))
	}
	if ms[0].NormalCoords() != nil {
		t.Error("pyramid gained normals through glTF")
	}
}

func TestGltfSourceIndices(t *testing.T) {
	doc := CreateDoc()
	vertices := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0}
	posView := appendView(doc, vertices, gltf.TargetArrayBuffer)
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView: uint32Ptr(posView), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 4,
	})
	idxView := appendView(doc, []uint16{0, 1, 2, 2, 1, 3}, gltf.TargetElementArrayBuffer)
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView: uint32Ptr(idxView), ComponentType: gltf.ComponentUshort, Type: gltf.AccessorScalar, Count: 6,
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{Primitives: []*gltf.Primitive{
		{Attributes: gltf.Attribute{"POSITION": 0}, Indices: uint32Ptr(1), Mode: gltf.PrimitiveTriangles},
		{Attributes: gltf.Attribute{"POSITION": 0}, Mode: gltf.PrimitiveTriangles},
		{Attributes: gltf.Attribute{"NORMAL": 0}, Mode: gltf.PrimitiveTriangles},
	}})

	data, err := NewGltfSource(doc, 0, 0)
	if err != nil {
		t.Fatalf("NewGltfSource failed: %v", err)
	}
	if got := data.Indices.Values(); !reflect.DeepEqual(got, []uint32{0, 1, 2, 2, 1, 3}) {
		t.Errorf("indices = %v", got)
	}

	data, err = NewGltfSource(doc, 0, 1)
	if err != nil {
		t.Fatalf("NewGltfSource failed: %v", err)
	}
	if got := data.Indices.Values(); !reflect.DeepEqual(got, []uint32{0, 1, 2, 3}) {
		t.Errorf("implicit indices = %v", got)
	}

	var ma *MissingAttributeError
	if _, err := NewGltfSource(doc, 0, 2); !errors.As(err, &ma) {
		t.Errorf("NewGltfSource without POSITION error = %v, want *MissingAttributeError", err)
	}
	var nf *ResourceNotFoundError
	if _, err := NewGltfSource(doc, 3, 0); !errors.As(err, &nf) {
		t.Errorf("NewGltfSource(mesh 3) error = %v, want *ResourceNotFoundError", err)
	}
}

// TestGetGltfBinary 测试二进制GLTF生成
func TestGetGltfBinary(t *testing.T) {
	doc, err := MeshToGltf([]*EngineMesh{NewIcosahedronMesh("ico", 1)})
	if err != nil {
		t.Fatalf("MeshToGltf failed: %v", err)
	}
	bin, err := GetGltfBinary(doc, 8)
	if err != nil {
		t.Fatalf("GetGltfBinary failed: %v", err)
	}
	if len(bin) == 0 || len(bin)%8 != 0 {
		t.Errorf("Binary length should be a positive multiple of 8, got %d", len(bin))
	}
	if !bytes.HasPrefix(bin, []byte("glTF")) {
		t.Error("Binary output does not start with the GLB magic")
	}
}

// TestCalcPadding 测试填充计算
func TestCalcPadding(t *testing.T) {
	tests := []struct {
		offset   int
		unit     int
		expected int
	}{
		{0, 4, 0},
		{1, 4, 3},
		{2, 4, 2},
		{3, 4, 1},
		{4, 4, 0},
		{5, 4, 3},
		{7, 8, 1},
		{8, 8, 0},
		{5, 0, 0},
	}

	for _, test := range tests {
		result := calcPadding(test.offset, test.unit)
		if result != test.expected {
			t.Errorf("calcPadding(%d, %d) = %d, expected %d", test.offset, test.unit, result, test.expected)
		}
	}
}

// TestBufferWriter 测试缓冲区写入器
func TestBufferWriter(t *testing.T) {
	writer := newBufferWriter()

	data := []byte{1, 2, 3, 4, 5}
	n, err := writer.Write(data)
	if err != nil {
		t.Fatalf("BufferWriter.Write failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected write length %d, got %d", len(data), n)
	}
	if writer.Size() != len(data) {
		t.Errorf("Expected buffer size %d, got %d", len(data), writer.Size())
	}
	if !bytes.Equal(writer.Bytes(), data) {
		t.Errorf("Written data mismatch: got %v, expected %v", writer.Bytes(), data)
	}
}

func TestGltfAttributeName(t *testing.T) {
	tests := map[string]string{
		"height":  "_HEIGHT",
		"_weight": "_WEIGHT",
		" id ":    "_ID",
	}
	for in, want := range tests {
		if got := gltfAttributeName(in); got != want {
			t.Errorf("gltfAttributeName(%q) = %s, want %s", in, got, want)
		}
	}
}
