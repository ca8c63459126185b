package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/rigsim/internal/geom"
)

const (
	Version = 1

	skeletonMagic = "RSKL"
	meshMagic     = "RSKM"
	trailer       = "END."

	// upper bound on up-front allocation from an untrusted count
	maxPrealloc = 1 << 16
)

// encoder appends little-endian values to buf.
type encoder struct {
	buf  []byte
	file string
	err  error
}

func (e *encoder) raw(s string)  { e.buf = append(e.buf, s...) }
func (e *encoder) u8(v uint8)    { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16)  { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32)  { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) i32(v int32)   { e.u32(uint32(v)) }
func (e *encoder) f32(v float32) { e.u32(math.Float32bits(v)) }

func (e *encoder) f64(v float64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}

func (e *encoder) vec3(v geom.Vec3) {
	e.f64(v.X)
	e.f64(v.Y)
	e.f64(v.Z)
}

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) str(s string) {
	if len(s) > math.MaxUint16 {
		e.fail("string of %d bytes exceeds u16 length", len(s))
		return
	}
	e.u16(uint16(len(s)))
	e.raw(s)
}

func (e *encoder) fail(format string, args ...any) {
	if e.err == nil {
		e.err = &FormatError{File: e.file, Offset: int64(len(e.buf)), Reason: fmt.Sprintf(format, args...)}
	}
}

func (e *encoder) flush(w io.Writer) error {
	if e.err != nil {
		return e.err
	}
	_, err := w.Write(e.buf)
	return err
}

// decoder reads little-endian values and remembers the first failure.
// Every accessor returns the zero value once an error is set.
type decoder struct {
	r    io.Reader
	file string
	off  int64
	err  error
	tmp  [8]byte
}

func newDecoder(r io.Reader, file string) *decoder {
	return &decoder{r: r, file: file}
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = &FormatError{File: d.file, Offset: d.off, Reason: fmt.Sprintf(format, args...)}
	}
}

func (d *decoder) read(p []byte) bool {
	if d.err != nil {
		return false
	}
	n, err := io.ReadFull(d.r, p)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			d.off += int64(n)
			d.fail("truncated: wanted %d bytes, got %d", len(p), n)
		} else if d.err == nil {
			d.err = fmt.Errorf("codec: %s: %w", d.file, err)
		}
		return false
	}
	d.off += int64(n)
	return true
}

func (d *decoder) u8() uint8 {
	if !d.read(d.tmp[:1]) {
		return 0
	}
	return d.tmp[0]
}

func (d *decoder) u16() uint16 {
	if !d.read(d.tmp[:2]) {
		return 0
	}
	return binary.LittleEndian.Uint16(d.tmp[:2])
}

func (d *decoder) u32() uint32 {
	if !d.read(d.tmp[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(d.tmp[:4])
}

func (d *decoder) i32() int32 { return int32(d.u32()) }

func (d *decoder) f32() float32 { return math.Float32frombits(d.u32()) }

func (d *decoder) f64() float64 {
	if !d.read(d.tmp[:8]) {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(d.tmp[:8]))
}

func (d *decoder) vec3() geom.Vec3 {
	x := d.f64()
	y := d.f64()
	z := d.f64()
	return geom.V(x, y, z)
}

func (d *decoder) bool(what string) bool {
	at := d.off
	switch v := d.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		if d.err == nil {
			d.err = &FormatError{File: d.file, Offset: at, Reason: fmt.Sprintf("%s flag must be 0 or 1, got %d", what, v)}
		}
		return false
	}
}

func (d *decoder) str() string {
	n := d.u16()
	if d.err != nil || n == 0 {
		return ""
	}
	p := make([]byte, n)
	if !d.read(p) {
		return ""
	}
	return string(p)
}

// marker checks a fixed four-byte sequence.
func (d *decoder) marker(want string) {
	at := d.off
	var p [4]byte
	if !d.read(p[:]) {
		return
	}
	if string(p[:]) != want {
		d.err = &FormatError{File: d.file, Offset: at, Reason: fmt.Sprintf("expected marker %q, got %q", want, p[:])}
	}
}

func (d *decoder) version() {
	at := d.off
	if v := d.u16(); d.err == nil && v != Version {
		d.err = &FormatError{File: d.file, Offset: at, Reason: fmt.Sprintf("unsupported version %d", v)}
	}
}

// end consumes the trailer and requires the reader to be exhausted.
func (d *decoder) end() error {
	d.marker(trailer)
	if d.err != nil {
		return d.err
	}
	n, err := d.r.Read(d.tmp[:1])
	if n > 0 {
		d.fail("trailing bytes after %q", trailer)
		return d.err
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("codec: %s: %w", d.file, err)
	}
	return nil
}

func prealloc(n uint32) int {
	if n > maxPrealloc {
		return maxPrealloc
	}
	return int(n)
}
