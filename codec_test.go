package ctm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func sameFloats(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}

// TestParseTier 测试压缩等级解析
func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    CompressionTier
		wantErr bool
	}{
		{"raw", Raw, false},
		{"RAW", Raw, false},
		{"tier0", Raw, false},
		{"mg1", Tier1, false},
		{" tier1 ", Tier1, false},
		{"MG2", Tier2, false},
		{"zip", Raw, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTier(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTier(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseTier(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	for _, tier := range Tiers() {
		if !tier.Valid() {
			t.Errorf("%v.Valid() = false", tier)
		}
		back, ok := tierForMethod(tier.Method())
		if !ok || back != tier {
			t.Errorf("tierForMethod(%q) = %v, %v, want %v", tier.Method(), back, ok, tier)
		}
	}
	if CompressionTier(9).Valid() {
		t.Error("CompressionTier(9).Valid() = true")
	}
}

// TestRawRoundTrip 测试RAW等级逐位无损
func TestRawRoundTrip(t *testing.T) {
	src := SphereContainer(1.25, 6, 8)
	src.UVMaps[0].Filename = "earth.png"

	data, err := Encode(src, "raw sphere", Raw)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	rd := NewReader(bytes.NewReader(data))
	got, err := rd.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if rd.Header().Comment != "raw sphere" {
		t.Errorf("Comment = %q, want %q", rd.Header().Comment, "raw sphere")
	}
	if !sameFloats(got.Vertices, src.Vertices) {
		t.Error("vertices differ after RAW round trip")
	}
	if !sameFloats(got.Normals, src.Normals) {
		t.Error("normals differ after RAW round trip")
	}
	if !reflect.DeepEqual(got.Indices, src.Indices) {
		t.Error("indices differ after RAW round trip")
	}
	if len(got.UVMaps) != 1 || !sameFloats(got.UVMaps[0].Values, src.UVMaps[0].Values) {
		t.Fatal("uv map differs after RAW round trip")
	}
	if got.UVMaps[0].Name != "uv0" || got.UVMaps[0].Filename != "earth.png" {
		t.Errorf("uv map = %s/%s, want uv0/earth.png", got.UVMaps[0].Name, got.UVMaps[0].Filename)
	}
	if len(got.Attributes) != 1 || got.Attributes[0].Name != "height" || !sameFloats(got.Attributes[0].Values, src.Attributes[0].Values) {
		t.Error("attribute map differs after RAW round trip")
	}
}

// TestRearrangeTriangles 测试MG1三角形重排
func TestRearrangeTriangles(t *testing.T) {
	tests := []struct {
		name string
		in   []uint32
		want []uint32
	}{
		{"empty", nil, []uint32{}},
		{"rotate", []uint32{2, 0, 1}, []uint32{0, 1, 2}},
		{"rotate last", []uint32{5, 7, 3}, []uint32{3, 5, 7}},
		{"keep winding", []uint32{1, 0, 2}, []uint32{0, 2, 1}},
		{"sort first", []uint32{4, 5, 6, 1, 2, 3}, []uint32{1, 2, 3, 4, 5, 6}},
		{"sort second", []uint32{0, 5, 6, 0, 2, 3}, []uint32{0, 2, 3, 0, 5, 6}},
		{"stable", []uint32{0, 1, 9, 0, 1, 4}, []uint32{0, 1, 9, 0, 1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]uint32(nil), tt.in...)
			got := MG1Encoder{}.RearrangeTriangles(in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RearrangeTriangles(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if !reflect.DeepEqual(in, append([]uint32(nil), tt.in...)) {
				t.Error("RearrangeTriangles modified its input")
			}
		})
	}
}

func TestIndexDeltas(t *testing.T) {
	idx := MG1Encoder{}.RearrangeTriangles(SphereContainer(1, 5, 7).Indices)
	d := makeIndexDeltas(idx)
	if got := restoreIndices(d); !reflect.DeepEqual(got, idx) {
		t.Fatalf("restoreIndices(makeIndexDeltas(x)) != x")
	}

	d = makeIndexDeltas([]uint32{0, 1, 2, 0, 2, 3, 1, 4, 2})
	want := []int32{0, 1, 2, 0, 1, 3, 1, 3, 1}
	if !reflect.DeepEqual(d, want) {
		t.Errorf("makeIndexDeltas() = %v, want %v", d, want)
	}
}

// TestMG1RoundTrip 测试MG1等级值无损，索引为重排后的顺序
func TestMG1RoundTrip(t *testing.T) {
	src := BoxContainer(1, 2, 3)
	data, err := Encode(src, "", Tier1)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !sameFloats(got.Vertices, src.Vertices) || !sameFloats(got.Normals, src.Normals) {
		t.Error("vertex data differs after MG1 round trip")
	}
	if !sameFloats(got.UVMaps[0].Values, src.UVMaps[0].Values) {
		t.Error("uv map differs after MG1 round trip")
	}
	want := MG1Encoder{}.RearrangeTriangles(src.Indices)
	if !reflect.DeepEqual(got.Indices, want) {
		t.Errorf("Indices = %v, want %v", got.Indices, want)
	}
	if v0, v1 := src.BoundingBox().Volume(), got.BoundingBox().Volume(); v0 != v1 {
		t.Errorf("Volume = %v, want %v", v1, v0)
	}
}

// TestMG2RoundTrip 测试MG2等级包围盒体积误差
func TestMG2RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mesh *ContainerMesh
	}{
		{"box", BoxContainer(1, 2, 3)},
		{"pyramid", PyramidContainer(2, 3)},
		{"icosahedron", IcosahedronContainer(1.5)},
		{"sphere", SphereContainer(2, 12, 24)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.mesh, "", Tier2)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.VertexCount() != tt.mesh.VertexCount() || got.TriangleCount() != tt.mesh.TriangleCount() {
				t.Fatalf("counts = %d/%d, want %d/%d", got.VertexCount(), got.TriangleCount(), tt.mesh.VertexCount(), tt.mesh.TriangleCount())
			}
			if got.HasNormals() != tt.mesh.HasNormals() || len(got.UVMaps) != len(tt.mesh.UVMaps) {
				t.Error("channel layout differs after MG2 round trip")
			}
			v0, v1 := tt.mesh.BoundingBox().Volume(), got.BoundingBox().Volume()
			if math.Abs(v0-v1) > DefaultVolumeTolerance {
				t.Errorf("Volume = %v, want %v within %v", v1, v0, DefaultVolumeTolerance)
			}
		})
	}
}

func TestMG2Precision(t *testing.T) {
	src := SphereContainer(2, 8, 8)
	step := precisionStep(14)
	data, err := NewCodec(EncoderOptions{VertexPrecision: 14}).Encode(src, "", Tier2)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for i := range src.Vertices {
		if d := math.Abs(float64(src.Vertices[i] - got.Vertices[i])); d > step {
			t.Fatalf("vertex component %d off by %v, want <= %v", i, d, step)
		}
	}
}

func TestEmptyMeshRoundTrip(t *testing.T) {
	for _, tier := range Tiers() {
		t.Run(tier.String(), func(t *testing.T) {
			src := &ContainerMesh{Vertices: []float32{}, Indices: []uint32{}}
			data, err := Encode(src, "", tier)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.VertexCount() != 0 || got.TriangleCount() != 0 || got.HasNormals() {
				t.Errorf("decoded mesh = %d vertices, %d triangles, normals %v", got.VertexCount(), got.TriangleCount(), got.HasNormals())
			}
		})
	}
}

// TestDecodeTruncated 测试截断数据返回CodecError
func TestDecodeTruncated(t *testing.T) {
	for _, tier := range Tiers() {
		t.Run(tier.String(), func(t *testing.T) {
			data, err := Encode(PyramidContainer(1, 1), "truncated", tier)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			for n := 0; n < len(data); n++ {
				m, err := Decode(data[:n])
				if err == nil {
					t.Fatalf("Decode(%d of %d bytes) succeeded", n, len(data))
				}
				var ce *CodecError
				if !errors.As(err, &ce) {
					t.Fatalf("Decode(%d bytes) error = %T, want *CodecError", n, err)
				}
				if m != nil {
					t.Fatalf("Decode(%d bytes) returned a partial mesh", n)
				}
			}
		})
	}
}

// TestDecodeHugeCounts 测试头部声明的巨大数量不会导致按声明分配内存
func TestDecodeHugeCounts(t *testing.T) {
	var raw bytes.Buffer
	lw := newLittleWriter(&raw)
	FileHeaderMarshal(lw, &FileHeader{
		Version:       FORMAT_VERSION,
		Method:        Raw.Method(),
		VertexCount:   MAX_VERTEX_COUNT,
		TriangleCount: MAX_TRIANGLE_COUNT,
	})
	lw.writeTag(sectionIndices)

	patched := func(tier CompressionTier) []byte {
		data, err := Encode(PyramidContainer(1, 1), "", tier)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		binary.LittleEndian.PutUint32(data[12:], MAX_VERTEX_COUNT)
		binary.LittleEndian.PutUint32(data[16:], MAX_TRIANGLE_COUNT)
		return data
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"RAW", raw.Bytes()},
		{"MG1", patched(Tier1)},
		{"MG2", patched(Tier2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := Decode(tt.data)
			runtime.ReadMemStats(&after)

			var ce *CodecError
			if !errors.As(err, &ce) {
				t.Fatalf("Decode() error = %v, want *CodecError", err)
			}
			if grew := after.TotalAlloc - before.TotalAlloc; grew > 32<<20 {
				t.Errorf("Decode() of %d bytes allocated %d MB", len(tt.data), grew>>20)
			}
		})
	}
}

func TestDecodeCorruptHeader(t *testing.T) {
	data, err := Encode(PyramidContainer(1, 1), "", Raw)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	tests := []struct {
		name   string
		mutate func(b []byte)
	}{
		{"signature", func(b []byte) { copy(b, "XCTM") }},
		{"version", func(b []byte) { b[4] = 9 }},
		{"method", func(b []byte) { copy(b[8:], "MG9\x00") }},
		{"vertex count", func(b []byte) { b[15] = 0x7f }},
		{"vertex count mismatch", func(b []byte) { b[12]++ }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append([]byte(nil), data...)
			tt.mutate(b)
			_, err := Decode(b)
			var ce *CodecError
			if !errors.As(err, &ce) {
				t.Fatalf("Decode() error = %v, want *CodecError", err)
			}
			if ce.Op != "decode" {
				t.Errorf("Op = %s, want decode", ce.Op)
			}
		})
	}
}

func TestEncodeInvalidMesh(t *testing.T) {
	tests := []struct {
		name string
		mesh *ContainerMesh
	}{
		{"nil", nil},
		{"vertices", &ContainerMesh{Vertices: []float32{0, 0}}},
		{"index range", &ContainerMesh{Vertices: []float32{0, 0, 0}, Indices: []uint32{0, 0, 1}}},
		{"normals", &ContainerMesh{Vertices: []float32{0, 0, 0}, Normals: []float32{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.mesh, "", Tier1)
			var ce *CodecError
			if !errors.As(err, &ce) {
				t.Fatalf("Encode() error = %v, want *CodecError", err)
			}
			if ce.Op != "encode" {
				t.Errorf("Op = %s, want encode", ce.Op)
			}
		})
	}
}

// TestEncodeLimits 测试编码端与解码端使用相同的上限
func TestEncodeLimits(t *testing.T) {
	wide := func(comps int) func(m *ContainerMesh) {
		return func(m *ContainerMesh) {
			values := make([]float32, m.VertexCount()*comps)
			for i := range values {
				values[i] = 0.5
			}
			m.Attributes = append(m.Attributes, NewAttributeMap("wide", comps, values))
		}
	}
	uvMaps := func(n int) func(m *ContainerMesh) {
		return func(m *ContainerMesh) {
			for len(m.UVMaps) < n {
				m.UVMaps = append(m.UVMaps, m.UVMaps[0].clone())
			}
		}
	}
	tests := []struct {
		name   string
		mutate func(m *ContainerMesh)
		ok     bool
	}{
		{"max precision", func(m *ContainerMesh) { m.UVMaps[0].Precision = MAX_PRECISION }, true},
		{"precision over limit", func(m *ContainerMesh) { m.UVMaps[0].Precision = MAX_PRECISION + 1 }, false},
		{"negative precision", func(m *ContainerMesh) { m.UVMaps[0].Precision = -1 }, false},
		{"max components", wide(MAX_COMPONENTS), true},
		{"components over limit", wide(MAX_COMPONENTS + 1), false},
		{"max name", func(m *ContainerMesh) { m.UVMaps[0].Name = string(bytes.Repeat([]byte("n"), MAX_STRING_LENGTH)) }, true},
		{"name over limit", func(m *ContainerMesh) { m.UVMaps[0].Name = string(bytes.Repeat([]byte("n"), MAX_STRING_LENGTH+1)) }, false},
		{"filename over limit", func(m *ContainerMesh) { m.UVMaps[0].Filename = string(bytes.Repeat([]byte("f"), MAX_STRING_LENGTH+1)) }, false},
		{"max channels", uvMaps(MAX_CHANNEL_COUNT), true},
		{"channels over limit", uvMaps(MAX_CHANNEL_COUNT + 1), false},
	}
	for _, tier := range Tiers() {
		for _, tt := range tests {
			t.Run(tier.String()+"/"+tt.name, func(t *testing.T) {
				m := PyramidContainer(1, 1)
				tt.mutate(m)
				data, err := Encode(m, "", tier)
				if !tt.ok {
					var ce *CodecError
					if !errors.As(err, &ce) || ce.Op != "encode" {
						t.Fatalf("Encode() error = %v, want encode *CodecError", err)
					}
					return
				}
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				got, err := Decode(data)
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if tier == Raw && !reflect.DeepEqual(got, m) {
					t.Error("RAW round trip changed the mesh")
				}
			})
		}
	}
}

func TestUnsupportedTier(t *testing.T) {
	if _, err := Encode(PyramidContainer(1, 1), "", CompressionTier(7)); err == nil {
		t.Error("Encode() with unknown tier succeeded")
	}
}

// TestMeshReadWriteFile 测试文件读写
func TestMeshReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "box"+CTMEXT)
	src := BoxContainer(1, 1, 1)
	if err := MeshWriteTo(path, src, "file", Tier1); err != nil {
		t.Fatalf("MeshWriteTo() error = %v", err)
	}
	got, err := MeshReadFrom(path)
	if err != nil {
		t.Fatalf("MeshReadFrom() error = %v", err)
	}
	if got.VertexCount() != src.VertexCount() || got.TriangleCount() != src.TriangleCount() {
		t.Errorf("counts = %d/%d, want %d/%d", got.VertexCount(), got.TriangleCount(), src.VertexCount(), src.TriangleCount())
	}
	if _, err := MeshReadFrom(filepath.Join(t.TempDir(), "missing.ctm")); err == nil {
		t.Error("MeshReadFrom() of missing file succeeded")
	}
}
