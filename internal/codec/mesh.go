package codec

import (
	"fmt"
	"io"
	"math"

	"github.com/san-kum/rigsim/internal/geom"
)

// Mesh is the collision/visual geometry and mass of one body. Arrays are
// flat: three floats per vertex or normal, three indices per triangle.
type Mesh struct {
	Vertices     []float32
	Normals      []float32
	Indices      []uint32
	Mass         float64
	CenterOfMass geom.Vec3
}

func (m *Mesh) VertexCount() int { return len(m.Vertices) / 3 }

func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

func (m *Mesh) IsEmpty() bool { return len(m.Vertices) == 0 }

// Validate checks the array shapes the mesh file requires.
func (m *Mesh) Validate() error {
	switch {
	case len(m.Vertices)%3 != 0:
		return fmt.Errorf("vertex array length %d is not a multiple of 3", len(m.Vertices))
	case len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices):
		return fmt.Errorf("normal array length %d does not match %d vertices", len(m.Normals), len(m.Vertices))
	case len(m.Indices)%3 != 0:
		return fmt.Errorf("index count %d is not a multiple of 3", len(m.Indices))
	case m.Mass < 0 || math.IsNaN(m.Mass) || math.IsInf(m.Mass, 0):
		return fmt.Errorf("mass %v is not a finite non-negative number", m.Mass)
	}
	vc := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= vc {
			return fmt.Errorf("index %d at %d out of range for %d vertices", idx, i, vc)
		}
	}
	return nil
}

// EncodeMesh writes m under the default mesh name for node 0.
func EncodeMesh(w io.Writer, m *Mesh) error {
	return encodeMesh(w, m, MeshFileName(0))
}

func encodeMesh(w io.Writer, m *Mesh, file string) error {
	if err := m.Validate(); err != nil {
		return &FormatError{File: file, Offset: -1, Reason: err.Error()}
	}

	e := &encoder{file: file, buf: make([]byte, 0, 64+4*(len(m.Vertices)+len(m.Normals)+len(m.Indices)))}
	e.raw(meshMagic)
	e.u16(Version)
	e.f64(m.Mass)
	e.vec3(m.CenterOfMass)

	e.u32(uint32(m.VertexCount()))
	for _, v := range m.Vertices {
		e.f32(v)
	}
	e.u32(uint32(len(m.Normals) / 3))
	for _, v := range m.Normals {
		e.f32(v)
	}
	e.u32(uint32(len(m.Indices)))
	for _, i := range m.Indices {
		e.u32(i)
	}

	e.raw(trailer)
	return e.flush(w)
}

// DecodeMesh reads one mesh file.
func DecodeMesh(r io.Reader) (*Mesh, error) {
	return decodeMesh(r, MeshFileName(0))
}

func decodeMesh(r io.Reader, file string) (*Mesh, error) {
	d := newDecoder(r, file)
	d.marker(meshMagic)
	d.version()

	m := &Mesh{Mass: d.f64(), CenterOfMass: d.vec3()}
	if d.err == nil && (m.Mass < 0 || math.IsNaN(m.Mass) || math.IsInf(m.Mass, 0)) {
		d.fail("mass %v is not a finite non-negative number", m.Mass)
	}

	vc := d.u32()
	m.Vertices = d.floats(vc)

	at := d.off
	nc := d.u32()
	if d.err == nil && nc != 0 && nc != vc {
		d.err = &FormatError{File: file, Offset: at, Reason: fmt.Sprintf("normal count %d must be 0 or %d", nc, vc)}
	}
	m.Normals = d.floats(nc)

	at = d.off
	ic := d.u32()
	if d.err == nil && ic%3 != 0 {
		d.err = &FormatError{File: file, Offset: at, Reason: fmt.Sprintf("index count %d is not a multiple of 3", ic)}
	}
	if ic > 0 && d.err == nil {
		m.Indices = make([]uint32, 0, prealloc(ic))
	}
	for i := uint32(0); i < ic && d.err == nil; i++ {
		at = d.off
		idx := d.u32()
		if d.err == nil && idx >= vc {
			d.err = &FormatError{File: file, Offset: at, Reason: fmt.Sprintf("index %d out of range for %d vertices", idx, vc)}
		}
		m.Indices = append(m.Indices, idx)
	}

	if err := d.end(); err != nil {
		return nil, err
	}
	return m, nil
}

// floats reads n xyz triples.
func (d *decoder) floats(n uint32) []float32 {
	if n == 0 || d.err != nil {
		return nil
	}
	out := make([]float32, 0, prealloc(n)*3)
	for i := uint32(0); i < n && d.err == nil; i++ {
		out = append(out, d.f32(), d.f32(), d.f32())
	}
	return out
}
