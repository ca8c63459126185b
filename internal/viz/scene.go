package viz

import (
	"math"
	"sort"

	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/skeleton"
)

// Camera orbits a target and projects world points onto the canvas.
type Camera struct {
	Target     geom.Vec3
	Distance   float64
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 50, RotX: -0.5, RotY: 0.6, Zoom: 0.03}
}

func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(1, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.001, c.Zoom/1.2) }

func (c *Camera) rotate(p geom.Vec3) geom.Vec3 {
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// Project maps p to pixel coordinates on a sw x sh surface. ok is false for
// points behind the camera or off screen.
func (c *Camera) Project(p geom.Vec3, sw, sh int) (x, y int, depth float64, ok bool) {
	rot := c.rotate(p.Sub(c.Target)).Scale(c.Zoom)
	if rot.Z >= c.Distance-0.1 {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - rot.Z)
	unit := float64(min(sw, sh)) / 3
	x = int(rot.X*scale*unit) + sw/2
	y = int(-rot.Y*scale*unit) + sh/2
	return x, y, rot.Z, x >= 0 && x < sw && y >= 0 && y < sh
}

type Edge struct {
	Start, End geom.Vec3
}

type Wireframe struct {
	Edges  []Edge
	Points []geom.Vec3
}

func (w *Wireframe) AddEdge(s, e geom.Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) AddPoint(p geom.Vec3)   { w.Points = append(w.Points, p) }

// SkeletonWireframe links every body origin to its parent's and adds a
// heading tick on the root along its local +Z.
func SkeletonWireframe(skel *skeleton.Skeleton, b drive.Binding, heading float64) *Wireframe {
	w := &Wireframe{}
	for n := range skel.ListAllNodes() {
		body, ok := b.Body(n.ID)
		if !ok {
			continue
		}
		tf := body.WorldTransform()
		w.AddPoint(tf.Origin)
		if n.IsRoot() {
			w.AddEdge(tf.Origin, tf.Apply(geom.V(0, 0, heading)))
			continue
		}
		if p, ok := b.Body(n.Parent); ok {
			w.AddEdge(p.WorldTransform().Origin, tf.Origin)
		}
	}
	return w
}

// Render draws far edges first so nearer ones overwrite them.
func Render(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	sw, sh := c.PixelSize()

	type projected struct {
		x1, y1, x2, y2 int
		depth          float64
	}
	proj := make([]projected, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, sw, sh)
		x2, y2, d2, v2 := cam.Project(e.End, sw, sh)
		if v1 || v2 {
			proj = append(proj, projected{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		c.DrawLine(e.x1, e.y1, e.x2, e.y2)
	}
	for _, p := range w.Points {
		if x, y, _, ok := cam.Project(p, sw, sh); ok {
			c.DrawCross(x, y)
		}
	}
}
