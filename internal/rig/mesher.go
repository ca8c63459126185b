package rig

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/san-kum/rigsim/internal/codec"
)

// DefaultResolution is the marching cubes cell count along the longest side.
const DefaultResolution = 48

// Mesher tessellates a shape. Mass and centre of mass are filled in by Build.
type Mesher interface {
	Mesh(s Shape) (*codec.Mesh, error)
}

// SDFMesher renders shapes as signed distance fields with marching cubes.
type SDFMesher struct {
	Resolution int
}

func (m SDFMesher) Mesh(s Shape) (*codec.Mesh, error) {
	s3, err := solid(s)
	if err != nil {
		return nil, err
	}
	cells := m.Resolution
	if cells <= 0 {
		cells = DefaultResolution
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s3, renderer)

	out := &codec.Mesh{
		Vertices: make([]float32, 0, len(triangles)*9),
		Normals:  make([]float32, 0, len(triangles)*9),
		Indices:  make([]uint32, 0, len(triangles)*3),
	}
	for i, tri := range triangles {
		n := tri.Normal()
		for j := 0; j < 3; j++ {
			v := tri[j]
			out.Vertices = append(out.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			out.Normals = append(out.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			out.Indices = append(out.Indices, uint32(i*3+j))
		}
	}
	return out, nil
}

func solid(s Shape) (sdf.SDF3, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	switch s.Kind {
	case ShapeBox:
		return sdf.Box3D(v3.Vec{X: s.Size[0], Y: s.Size[1], Z: s.Size[2]}, 0)
	case ShapeCylinder:
		c, err := sdf.Cylinder3D(s.Height, s.Radius, 0)
		if err != nil {
			return nil, err
		}
		switch s.Axis {
		case "x":
			return sdf.Transform3D(c, sdf.RotateY(math.Pi/2)), nil
		case "y":
			return sdf.Transform3D(c, sdf.RotateX(-math.Pi/2)), nil
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown shape %q", s.Kind)
}

// BoxMesher emits the twelve-triangle bounding box of a shape.
type BoxMesher struct{}

func (BoxMesher) Mesh(s Shape) (*codec.Mesh, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	h := s.halfExtents()

	faces := [6]struct {
		n    [3]float32
		quad [4][3]float32
	}{
		{[3]float32{1, 0, 0}, [4][3]float32{{1, -1, -1}, {1, 1, -1}, {1, 1, 1}, {1, -1, 1}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}, {-1, -1, -1}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-1, 1, -1}, {-1, 1, 1}, {1, 1, 1}, {1, 1, -1}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
		{[3]float32{0, 0, 1}, [4][3]float32{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}, {1, -1, -1}}},
	}

	out := &codec.Mesh{}
	for _, f := range faces {
		base := uint32(len(out.Vertices) / 3)
		for _, c := range f.quad {
			out.Vertices = append(out.Vertices, c[0]*h[0], c[1]*h[1], c[2]*h[2])
			out.Normals = append(out.Normals, f.n[0], f.n[1], f.n[2])
		}
		out.Indices = append(out.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return out, nil
}

func (s Shape) halfExtents() [3]float32 {
	if s.Kind == ShapeBox {
		return [3]float32{float32(s.Size[0] / 2), float32(s.Size[1] / 2), float32(s.Size[2] / 2)}
	}
	r, h := float32(s.Radius), float32(s.Height/2)
	switch s.Axis {
	case "x":
		return [3]float32{h, r, r}
	case "y":
		return [3]float32{r, h, r}
	}
	return [3]float32{r, r, h}
}
