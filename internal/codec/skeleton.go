package codec

import (
	"fmt"
	"io"
	"math"

	"github.com/san-kum/rigsim/internal/skeleton"
)

// SkeletonFileName is the skeleton file inside a robot directory.
const SkeletonFileName = "skeleton.rsk"

// maxNodes bounds the node count a skeleton file may declare.
const maxNodes = 1 << 20

// EncodeSkeleton writes skel in ListAllNodes order, so record i is the
// node at traversal position i and every parent precedes its children.
// Parent links are written as traversal positions; decoding therefore
// yields NodeID == traversal position.
func EncodeSkeleton(w io.Writer, skel *skeleton.Skeleton) error {
	if err := skel.Validate(); err != nil {
		return fmt.Errorf("codec: %s: %w", SkeletonFileName, err)
	}

	e := &encoder{file: SkeletonFileName}
	e.raw(skeletonMagic)
	e.u16(Version)
	e.u32(uint32(skel.Len()))

	pos := skel.Index()
	for n := range skel.ListAllNodes() {
		parent := -1
		if !n.IsRoot() {
			parent = pos[n.Parent]
		}
		e.i32(int32(parent))
		e.str(n.Name)
		e.str(n.MeshFile)
		e.bool(n.Joint != nil)
		if n.Joint != nil {
			encodeJoint(e, n.Joint)
		}
	}

	e.raw(trailer)
	return e.flush(w)
}

func encodeJoint(e *encoder, j *skeleton.Joint) {
	e.u8(uint8(j.Kind))
	e.vec3(j.Axis)
	e.vec3(j.Anchor)
	e.bool(j.Limits != nil)
	if j.Limits != nil {
		e.f64(j.Limits.Min)
		e.f64(j.Limits.Max)
	}

	d := j.Driver
	if d == nil {
		e.u8(uint8(skeleton.NoDriver))
		return
	}
	e.u8(uint8(d.Kind))
	if d.Port > math.MaxInt32 {
		e.fail("driver port %d does not fit in i32", d.Port)
		return
	}
	e.i32(int32(d.Port))
	e.f64(d.MaxForce)
	e.f64(d.MaxSpeed)
	e.f64(d.CoastFriction)

	if len(d.Meta) > math.MaxUint8 {
		e.fail("driver has %d metas, at most %d allowed", len(d.Meta), math.MaxUint8)
		return
	}
	e.u8(uint8(len(d.Meta)))
	for _, m := range d.Meta {
		e.u8(uint8(m.Tag()))
		switch m := m.(type) {
		case skeleton.MetaWheel:
			e.f64(m.Radius)
			e.u8(uint8(m.Side))
		case skeleton.MetaElevator:
			e.u8(m.Stage)
		}
	}
}

// DecodeSkeleton reads one skeleton file. Layout problems return a
// *FormatError; a well-formed file describing a broken tree returns the
// *skeleton.StructuralError.
func DecodeSkeleton(r io.Reader) (*skeleton.Skeleton, error) {
	return decodeSkeleton(r, SkeletonFileName)
}

func decodeSkeleton(r io.Reader, file string) (*skeleton.Skeleton, error) {
	d := newDecoder(r, file)
	d.marker(skeletonMagic)
	d.version()

	at := d.off
	count := d.u32()
	if d.err != nil {
		return nil, d.err
	}
	if count > maxNodes {
		return nil, &FormatError{File: file, Offset: at, Reason: fmt.Sprintf("node count %d exceeds %d", count, maxNodes)}
	}

	specs := make([]skeleton.NodeSpec, 0, prealloc(count))
	for i := uint32(0); i < count && d.err == nil; i++ {
		sp := skeleton.NodeSpec{
			Parent:   int(d.i32()),
			Name:     d.str(),
			MeshFile: d.str(),
		}
		if d.bool("joint") {
			sp.Joint = decodeJoint(d)
		}
		specs = append(specs, sp)
	}

	if err := d.end(); err != nil {
		return nil, err
	}

	skel, err := skeleton.Assemble(specs)
	if err != nil {
		return nil, fmt.Errorf("codec: %s: %w", file, err)
	}
	return skel, nil
}

func decodeJoint(d *decoder) *skeleton.Joint {
	at := d.off
	kind := skeleton.JointKind(d.u8())
	if d.err == nil && !kind.Valid() {
		d.err = &FormatError{File: d.file, Offset: at, Reason: fmt.Sprintf("unknown joint kind %d", uint8(kind))}
		return nil
	}

	j := &skeleton.Joint{Kind: kind, Axis: d.vec3(), Anchor: d.vec3()}
	if d.bool("limits") {
		j.Limits = &skeleton.Limits{Min: d.f64(), Max: d.f64()}
	}

	at = d.off
	dk := skeleton.DriverKind(d.u8())
	if d.err != nil || dk == skeleton.NoDriver {
		return j
	}
	if !dk.Valid() {
		d.err = &FormatError{File: d.file, Offset: at, Reason: fmt.Sprintf("unknown driver kind %d", uint8(dk))}
		return j
	}

	drv := &skeleton.Driver{
		Kind:          dk,
		Port:          int(d.i32()),
		MaxForce:      d.f64(),
		MaxSpeed:      d.f64(),
		CoastFriction: d.f64(),
	}
	metas := d.u8()
	for i := uint8(0); i < metas && d.err == nil; i++ {
		at = d.off
		switch tag := skeleton.MetaTag(d.u8()); tag {
		case skeleton.MetaTagWheel:
			drv.Meta = append(drv.Meta, skeleton.MetaWheel{Radius: d.f64(), Side: skeleton.WheelSide(d.u8())})
		case skeleton.MetaTagElevator:
			drv.Meta = append(drv.Meta, skeleton.MetaElevator{Stage: d.u8()})
		default:
			if d.err == nil {
				d.err = &FormatError{File: d.file, Offset: at, Reason: fmt.Sprintf("unknown meta tag %d", uint8(tag))}
			}
		}
	}
	j.Driver = drv
	return j
}
