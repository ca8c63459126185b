package codec

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/skeleton"
)

// sampleRobot has a grandchild added last so ID order and traversal order
// differ.
func sampleRobot() *skeleton.Skeleton {
	s := skeleton.New("chassis", "")
	must := func(_ skeleton.NodeID, err error) {
		Expect(err).NotTo(HaveOccurred())
	}
	must(s.AddChild(s.RootID(), "left", "", &skeleton.Joint{
		Kind:   skeleton.Hinge,
		Axis:   geom.UnitX,
		Anchor: geom.V(-0.2, 0, 0.1),
		Driver: &skeleton.Driver{
			Kind: skeleton.Motor, Port: 0, MaxSpeed: 120,
			Meta: []skeleton.Meta{skeleton.MetaWheel{Radius: 0.05, Side: skeleton.SideLeft}},
		},
	}))
	stage, err := s.AddChild(s.RootID(), "stage", "", &skeleton.Joint{
		Kind:   skeleton.Slider,
		Axis:   geom.UnitY,
		Limits: &skeleton.Limits{Min: 0, Max: 1.2},
		Driver: &skeleton.Driver{
			Kind: skeleton.LinearMotor, Port: 3,
			Meta: []skeleton.Meta{skeleton.MetaElevator{Stage: 1}},
		},
	})
	Expect(err).NotTo(HaveOccurred())
	must(s.AddChild(s.RootID(), "piston", "", &skeleton.Joint{
		Kind:   skeleton.SixDOF,
		Axis:   geom.UnitZ,
		Driver: &skeleton.Driver{Kind: skeleton.Solenoid, Port: 2, MaxForce: 40},
	}))
	must(s.AddChild(stage, "claw", "", &skeleton.Joint{Kind: skeleton.Fixed}))
	return s
}

func sampleMesh() *Mesh {
	return &Mesh{
		Vertices:     []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1},
		Normals:      []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:      []uint32{0, 1, 2, 0, 2, 3},
		Mass:         1.5,
		CenterOfMass: geom.V(0.25, 0.25, 0.25),
	}
}

func encodeSkeletonBytes(s *skeleton.Skeleton) []byte {
	var buf bytes.Buffer
	Expect(EncodeSkeleton(&buf, s)).To(Succeed())
	return buf.Bytes()
}

func encodeMeshBytes(m *Mesh) []byte {
	var buf bytes.Buffer
	Expect(EncodeMesh(&buf, m)).To(Succeed())
	return buf.Bytes()
}

// craft builds a skeleton file by hand around the node records body writes.
func craft(count uint32, body func(e *encoder)) []byte {
	e := &encoder{file: SkeletonFileName}
	e.raw(skeletonMagic)
	e.u16(Version)
	e.u32(count)
	body(e)
	e.raw(trailer)
	return e.buf
}

func rootRecord(e *encoder, name string) {
	e.i32(-1)
	e.str(name)
	e.str("")
	e.bool(false)
}

// parentNames maps each node name to its parent's name.
func parentNames(s *skeleton.Skeleton) map[string]string {
	out := make(map[string]string, s.Len())
	for _, n := range s.Nodes() {
		if p, ok := s.Parent(n.ID); ok {
			out[n.Name] = p.Name
		}
	}
	return out
}

func formatErr(err error) *FormatError {
	var fe *FormatError
	Expect(errors.As(err, &fe)).To(BeTrue(), "expected *FormatError, got %v", err)
	return fe
}

var _ = Describe("Skeleton files", func() {
	It("round-trips every node, joint, driver and meta", func() {
		want := sampleRobot()
		got, err := DecodeSkeleton(bytes.NewReader(encodeSkeletonBytes(want)))
		Expect(err).NotTo(HaveOccurred())

		ids := cmpopts.IgnoreFields(skeleton.Node{}, "ID", "Parent", "Children")
		Expect(cmp.Diff(want.Nodes(), got.Nodes(), ids)).To(BeEmpty())
		Expect(parentNames(got)).To(Equal(parentNames(want)))
		Expect(got.RootID()).To(Equal(want.RootID()))
	})

	It("writes records in traversal order with parents first", func() {
		want := sampleRobot()
		got, err := DecodeSkeleton(bytes.NewReader(encodeSkeletonBytes(want)))
		Expect(err).NotTo(HaveOccurred())

		var names []string
		for i, n := range got.Nodes() {
			Expect(n.ID).To(Equal(skeleton.NodeID(i)))
			if !n.IsRoot() {
				Expect(n.Parent).To(BeNumerically("<", n.ID))
			}
			names = append(names, n.Name)
		}
		Expect(names).To(Equal([]string{"chassis", "left", "stage", "claw", "piston"}))
	})

	It("re-encodes a decoded file to identical bytes", func() {
		first := encodeSkeletonBytes(sampleRobot())
		got, err := DecodeSkeleton(bytes.NewReader(first))
		Expect(err).NotTo(HaveOccurred())
		Expect(encodeSkeletonBytes(got)).To(Equal(first))
	})

	It("rejects a wrong magic", func() {
		data := encodeSkeletonBytes(sampleRobot())
		copy(data, "RSKM")
		_, err := DecodeSkeleton(bytes.NewReader(data))
		Expect(err).To(MatchError(ErrFormat))
		Expect(formatErr(err).Offset).To(BeEquivalentTo(0))
	})

	It("rejects an unknown version", func() {
		data := encodeSkeletonBytes(sampleRobot())
		data[4] = 2
		_, err := DecodeSkeleton(bytes.NewReader(data))
		Expect(err).To(MatchError(ErrFormat))
		Expect(formatErr(err).Offset).To(BeEquivalentTo(4))
	})

	It("rejects trailing bytes", func() {
		data := append(encodeSkeletonBytes(sampleRobot()), 0)
		_, err := DecodeSkeleton(bytes.NewReader(data))
		Expect(err).To(MatchError(ErrFormat))
	})

	It("rejects every truncated prefix", func() {
		data := encodeSkeletonBytes(sampleRobot())
		for n := 0; n < len(data); n++ {
			_, err := DecodeSkeleton(bytes.NewReader(data[:n]))
			Expect(err).To(MatchError(ErrFormat), "prefix of %d bytes", n)
		}
	})

	It("reports the offset of an unknown joint kind", func() {
		data := craft(2, func(e *encoder) {
			rootRecord(e, "a")
			e.i32(0)
			e.str("b")
			e.str("")
			e.bool(true)
			e.u8(9)
		})
		_, err := DecodeSkeleton(bytes.NewReader(data))
		Expect(err).To(MatchError(ErrFormat))
		Expect(formatErr(err).Offset).To(BeEquivalentTo(30))
	})

	It("rejects an unknown meta tag", func() {
		data := craft(2, func(e *encoder) {
			rootRecord(e, "a")
			e.i32(0)
			e.str("b")
			e.str("")
			e.bool(true)
			encodeJoint(e, &skeleton.Joint{Kind: skeleton.Hinge, Axis: geom.UnitX})
			// overwrite the trailing driver kind with a motor carrying a bad meta
			e.buf = e.buf[:len(e.buf)-1]
			e.u8(uint8(skeleton.Motor))
			e.i32(0)
			e.f64(0)
			e.f64(0)
			e.f64(0)
			e.u8(1)
			e.u8(7)
		})
		_, err := DecodeSkeleton(bytes.NewReader(data))
		Expect(err).To(MatchError(ErrFormat))
		Expect(formatErr(err).Reason).To(ContainSubstring("meta tag 7"))
	})

	It("rejects a flag byte other than 0 or 1", func() {
		data := craft(1, func(e *encoder) {
			e.i32(-1)
			e.str("a")
			e.str("")
			e.u8(2)
		})
		_, err := DecodeSkeleton(bytes.NewReader(data))
		Expect(err).To(MatchError(ErrFormat))
	})

	It("surfaces two roots as a structural error naming the second", func() {
		data := craft(2, func(e *encoder) {
			rootRecord(e, "a")
			rootRecord(e, "b")
		})
		_, err := DecodeSkeleton(bytes.NewReader(data))
		Expect(err).To(MatchError(skeleton.ErrStructural))
		Expect(err).NotTo(MatchError(ErrFormat))

		var se *skeleton.StructuralError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.Node).To(Equal(skeleton.NodeID(1)))
		Expect(se.Name).To(Equal("b"))
	})

	It("surfaces a parent cycle as a structural error", func() {
		fixed := &skeleton.Joint{Kind: skeleton.Fixed}
		data := craft(3, func(e *encoder) {
			rootRecord(e, "root")
			for _, p := range []int32{2, 1} {
				e.i32(p)
				e.str("loop")
				e.str("")
				e.bool(true)
				encodeJoint(e, fixed)
			}
		})
		_, err := DecodeSkeleton(bytes.NewReader(data))
		Expect(err).To(MatchError(skeleton.ErrStructural))
	})

	It("puts the root first even when the tree was assembled child first", func() {
		s, err := skeleton.Assemble([]skeleton.NodeSpec{
			{Name: "arm", Parent: 1, Joint: &skeleton.Joint{Kind: skeleton.Fixed}},
			{Name: "chassis", Parent: -1},
		})
		Expect(err).NotTo(HaveOccurred())

		got, err := DecodeSkeleton(bytes.NewReader(encodeSkeletonBytes(s)))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.RootID()).To(Equal(skeleton.NodeID(0)))
		Expect(got.Root().Name).To(Equal("chassis"))
		arm, ok := got.Lookup("arm")
		Expect(ok).To(BeTrue())
		Expect(arm.Parent).To(Equal(skeleton.NodeID(0)))
	})

	It("refuses to encode a string longer than a u16", func() {
		s := skeleton.New(string(make([]byte, 70000)), "")
		Expect(EncodeSkeleton(&bytes.Buffer{}, s)).To(MatchError(ErrFormat))
	})
})

var _ = Describe("Mesh files", func() {
	It("round-trips geometry and mass", func() {
		want := sampleMesh()
		got, err := DecodeMesh(bytes.NewReader(encodeMeshBytes(want)))
		Expect(err).NotTo(HaveOccurred())
		Expect(cmp.Diff(want, got)).To(BeEmpty())
	})

	It("round-trips an empty mesh", func() {
		got, err := DecodeMesh(bytes.NewReader(encodeMeshBytes(&Mesh{})))
		Expect(err).NotTo(HaveOccurred())
		Expect(cmp.Diff(&Mesh{}, got, cmpopts.EquateEmpty())).To(BeEmpty())
		Expect(got.IsEmpty()).To(BeTrue())
	})

	It("reports counts", func() {
		m := sampleMesh()
		Expect(m.VertexCount()).To(Equal(4))
		Expect(m.TriangleCount()).To(Equal(2))
	})

	DescribeTable("refuses to encode malformed meshes",
		func(mutate func(*Mesh)) {
			m := sampleMesh()
			mutate(m)
			Expect(EncodeMesh(&bytes.Buffer{}, m)).To(MatchError(ErrFormat))
		},
		Entry("ragged vertices", func(m *Mesh) { m.Vertices = m.Vertices[:5] }),
		Entry("partial normals", func(m *Mesh) { m.Normals = m.Normals[:3] }),
		Entry("ragged indices", func(m *Mesh) { m.Indices = m.Indices[:4] }),
		Entry("index out of range", func(m *Mesh) { m.Indices[5] = 4 }),
		Entry("negative mass", func(m *Mesh) { m.Mass = -1 }),
	)

	It("rejects an index beyond the vertex count", func() {
		data := encodeMeshBytes(sampleMesh())
		// the last index sits just before the trailer
		data[len(data)-8] = 9
		_, err := DecodeMesh(bytes.NewReader(data))
		Expect(err).To(MatchError(ErrFormat))
		Expect(formatErr(err).Reason).To(ContainSubstring("out of range"))
	})

	It("rejects a normal count that is neither 0 nor the vertex count", func() {
		m := sampleMesh()
		data := encodeMeshBytes(m)
		// magic, version, mass, center of mass, vertex count, vertices
		off := 4 + 2 + 8 + 24 + 4 + 4*len(m.Vertices)
		data[off] = 3
		_, err := DecodeMesh(bytes.NewReader(data))
		Expect(err).To(MatchError(ErrFormat))
		Expect(formatErr(err).Offset).To(BeEquivalentTo(off))
	})

	It("rejects every truncated prefix and trailing bytes", func() {
		data := encodeMeshBytes(sampleMesh())
		for n := 0; n < len(data); n++ {
			_, err := DecodeMesh(bytes.NewReader(data[:n]))
			Expect(err).To(MatchError(ErrFormat), "prefix of %d bytes", n)
		}
		_, err := DecodeMesh(bytes.NewReader(append(data, 'x')))
		Expect(err).To(MatchError(ErrFormat))
	})
})

var _ = Describe("Robot directories", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("writes a skeleton plus one mesh per node and reads them back", func() {
		skel := sampleRobot()
		meshes := make([]*Mesh, skel.Len())
		meshes[skel.RootID()] = sampleMesh()

		var calls [][3]any
		progress := func(done, total int, stage string) {
			calls = append(calls, [3]any{done, total, stage})
		}
		Expect(WriteRobot(dir, skel, meshes, progress)).To(Succeed())

		Expect(calls).To(HaveLen(skel.Len() + 1))
		Expect(calls[0]).To(Equal([3]any{1, skel.Len() + 1, StageSkeleton}))
		Expect(calls[len(calls)-1]).To(Equal([3]any{skel.Len() + 1, skel.Len() + 1, StageMesh}))

		for i := 0; i < skel.Len(); i++ {
			Expect(filepath.Join(dir, MeshFileName(i))).To(BeAnExistingFile())
		}
		// names were chosen on a copy
		Expect(skel.Root().MeshFile).To(BeEmpty())

		got, gotMeshes, err := ReadRobot(dir, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Len()).To(Equal(skel.Len()))

		claw, ok := got.Lookup("claw")
		Expect(ok).To(BeTrue())
		Expect(claw.MeshFile).To(Equal(MeshFileName(got.Index()[claw.ID])))

		Expect(cmp.Diff(sampleMesh(), gotMeshes[got.RootID()])).To(BeEmpty())
		Expect(gotMeshes[claw.ID].IsEmpty()).To(BeTrue())
	})

	It("pairs each mesh file with the record at the same position", func() {
		s := skeleton.New("root", "")
		a, err := s.AddChild(s.RootID(), "a", "", &skeleton.Joint{Kind: skeleton.Fixed})
		Expect(err).NotTo(HaveOccurred())
		_, err = s.AddChild(s.RootID(), "b", "", &skeleton.Joint{Kind: skeleton.Fixed})
		Expect(err).NotTo(HaveOccurred())
		_, err = s.AddChild(a, "c", "", &skeleton.Joint{Kind: skeleton.Fixed})
		Expect(err).NotTo(HaveOccurred())

		mass := map[string]float64{"root": 1, "a": 2, "b": 3, "c": 4}
		meshes := make([]*Mesh, s.Len())
		for _, n := range s.Nodes() {
			m := sampleMesh()
			m.Mass = mass[n.Name]
			meshes[n.ID] = m
		}
		Expect(WriteRobot(dir, s, meshes, nil)).To(Succeed())

		f, err := os.Open(filepath.Join(dir, SkeletonFileName))
		Expect(err).NotTo(HaveOccurred())
		decoded, err := DecodeSkeleton(f)
		f.Close()
		Expect(err).NotTo(HaveOccurred())

		for i, n := range decoded.Nodes() {
			Expect(n.ID).To(Equal(skeleton.NodeID(i)))
			Expect(n.MeshFile).To(Equal(MeshFileName(i)), "record %d (%s)", i, n.Name)

			m, err := readMesh(filepath.Join(dir, MeshFileName(i)), MeshFileName(i))
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Mass).To(Equal(mass[n.Name]), "%s holds the mesh of another node", MeshFileName(i))
		}

		_, gotMeshes, err := ReadRobot(dir, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotMeshes[3].Mass).To(Equal(mass["b"]))
	})

	It("fails when a mesh file is missing", func() {
		Expect(WriteRobot(dir, sampleRobot(), nil, nil)).To(Succeed())
		Expect(os.Remove(filepath.Join(dir, MeshFileName(2)))).To(Succeed())

		_, _, err := ReadRobot(dir, nil)
		Expect(errors.Is(err, fs.ErrNotExist)).To(BeTrue())
	})

	It("rejects mesh names that leave the directory", func() {
		s := skeleton.New("chassis", "../escape.rsm")
		Expect(WriteRobot(dir, s, nil, nil)).To(MatchError(ErrFormat))
	})

	It("rejects two nodes sharing a mesh file", func() {
		s := skeleton.New("chassis", "shared.rsm")
		_, err := s.AddChild(s.RootID(), "arm", "shared.rsm", &skeleton.Joint{Kind: skeleton.Fixed})
		Expect(err).NotTo(HaveOccurred())
		Expect(WriteRobot(dir, s, nil, nil)).To(MatchError(ErrFormat))
	})
})
