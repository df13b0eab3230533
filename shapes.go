package ctm

import (
	"math"

	"github.com/flywave/go3d/vec3"
)

// BoxContainer builds an axis aligned box centred at the origin with the given
// half extents. Every face has its own four vertices, normals and uvs.
func BoxContainer(ex, ey, ez float32) *ContainerMesh {
	type face struct {
		n    vec3.T
		u, v vec3.T
	}
	faces := []face{
		{n: vec3.T{1, 0, 0}, u: vec3.T{0, 0, -1}, v: vec3.T{0, 1, 0}},
		{n: vec3.T{-1, 0, 0}, u: vec3.T{0, 0, 1}, v: vec3.T{0, 1, 0}},
		{n: vec3.T{0, 1, 0}, u: vec3.T{1, 0, 0}, v: vec3.T{0, 0, -1}},
		{n: vec3.T{0, -1, 0}, u: vec3.T{1, 0, 0}, v: vec3.T{0, 0, 1}},
		{n: vec3.T{0, 0, 1}, u: vec3.T{1, 0, 0}, v: vec3.T{0, 1, 0}},
		{n: vec3.T{0, 0, -1}, u: vec3.T{-1, 0, 0}, v: vec3.T{0, 1, 0}},
	}
	scale := vec3.T{ex, ey, ez}
	m := &ContainerMesh{}
	var uv []float32
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for fi, f := range faces {
		for _, c := range corners {
			p := vec3.T{
				f.n[0] + c[0]*f.u[0] + c[1]*f.v[0],
				f.n[1] + c[0]*f.u[1] + c[1]*f.v[1],
				f.n[2] + c[0]*f.u[2] + c[1]*f.v[2],
			}
			m.Vertices = append(m.Vertices, p[0]*scale[0], p[1]*scale[1], p[2]*scale[2])
			m.Normals = append(m.Normals, f.n[0], f.n[1], f.n[2])
			uv = append(uv, (c[0]+1)/2, (c[1]+1)/2)
		}
		base := uint32(fi * 4)
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	m.UVMaps = []*AttributeChannel{NewUVMap("uv0", "", uv)}
	return m
}

// PyramidContainer builds a square based pyramid without normals.
func PyramidContainer(halfWidth, height float32) *ContainerMesh {
	w := halfWidth
	m := &ContainerMesh{
		Vertices: []float32{
			-w, 0, -w,
			w, 0, -w,
			w, 0, w,
			-w, 0, w,
			0, height, 0,
		},
		Indices: []uint32{
			0, 1, 2, 0, 2, 3,
			3, 2, 4,
			2, 1, 4,
			1, 0, 4,
			0, 3, 4,
		},
	}
	m.UVMaps = []*AttributeChannel{NewUVMap("uv0", "", []float32{0, 0, 1, 0, 1, 1, 0, 1, 0.5, 0.5})}
	return m
}

// IcosahedronContainer builds a regular icosahedron of the given radius. It
// carries normals but no uvs.
func IcosahedronContainer(radius float32) *ContainerMesh {
	t := float32((1 + math.Sqrt(5)) / 2)
	pts := []vec3.T{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	m := &ContainerMesh{
		Indices: []uint32{
			0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
			1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
			3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
			4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
		},
	}
	for _, p := range pts {
		n := p
		n.Normalize()
		m.Vertices = append(m.Vertices, n[0]*radius, n[1]*radius, n[2]*radius)
		m.Normals = append(m.Normals, n[0], n[1], n[2])
	}
	return m
}

// SphereContainer builds a latitude/longitude sphere with normals, one uv map
// and a scalar "height" attribute.
func SphereContainer(radius float32, stacks, slices int) *ContainerMesh {
	if stacks < 2 {
		stacks = 2
	}
	if slices < 3 {
		slices = 3
	}
	m := &ContainerMesh{}
	var uv, heights []float32
	for i := 0; i <= stacks; i++ {
		phi := math.Pi * float64(i) / float64(stacks)
		for j := 0; j <= slices; j++ {
			theta := 2 * math.Pi * float64(j) / float64(slices)
			n := vec3.T{
				float32(math.Sin(phi) * math.Cos(theta)),
				float32(math.Cos(phi)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}
			m.Vertices = append(m.Vertices, n[0]*radius, n[1]*radius, n[2]*radius)
			m.Normals = append(m.Normals, n[0], n[1], n[2])
			uv = append(uv, float32(j)/float32(slices), 1-float32(i)/float32(stacks))
			heights = append(heights, (n[1]+1)/2)
		}
	}
	row := uint32(slices + 1)
	for i := 0; i < stacks; i++ {
		for j := 0; j < slices; j++ {
			a := uint32(i)*row + uint32(j)
			b := a + row
			if i != 0 {
				m.Indices = append(m.Indices, a, b, a+1)
			}
			if i != stacks-1 {
				m.Indices = append(m.Indices, a+1, b, b+1)
			}
		}
	}
	m.UVMaps = []*AttributeChannel{NewUVMap("uv0", "", uv)}
	m.Attributes = []*AttributeChannel{NewAttributeMap("height", 1, heights)}
	return m
}

func mustBuild(m *ContainerMesh, name string) *EngineMesh {
	em, err := Build(m, name)
	if err != nil {
		panic(err)
	}
	return em
}

func NewBoxMesh(name string, ex, ey, ez float32) *EngineMesh {
	return mustBuild(BoxContainer(ex, ey, ez), name)
}

func NewPyramidMesh(name string, halfWidth, height float32) *EngineMesh {
	return mustBuild(PyramidContainer(halfWidth, height), name)
}

func NewIcosahedronMesh(name string, radius float32) *EngineMesh {
	return mustBuild(IcosahedronContainer(radius), name)
}

func NewSphereMesh(name string, radius float32, stacks, slices int) *EngineMesh {
	return mustBuild(SphereContainer(radius, stacks, slices), name)
}

// SampleMeshes returns the built in shape set used by the self test.
func SampleMeshes() []*EngineMesh {
	return []*EngineMesh{
		NewBoxMesh("box", 1, 2, 3),
		NewPyramidMesh("pyramid", 2, 3),
		NewIcosahedronMesh("icosahedron", 1.5),
		NewSphereMesh("sphere", 2, 12, 24),
	}
}
