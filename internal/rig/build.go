package rig

import (
	"errors"
	"fmt"

	"github.com/san-kum/rigsim/internal/codec"
	"github.com/san-kum/rigsim/internal/skeleton"
)

// StageTessellate is reported by Build once per part meshed.
const StageTessellate = "tessellate"

var ErrDescription = errors.New("rig: invalid description")

// Build assembles the skeleton and one mesh per node, indexed by NodeID.
// Parts may only reference the chassis or a part listed before them.
func Build(d *Description, mesher Mesher, progress codec.Progress) (*skeleton.Skeleton, []*codec.Mesh, error) {
	if d == nil {
		return nil, nil, fmt.Errorf("%w: nil description", ErrDescription)
	}
	if mesher == nil {
		mesher = SDFMesher{}
	}
	if d.Chassis.Name == "" {
		return nil, nil, fmt.Errorf("%w: chassis has no name", ErrDescription)
	}

	total := len(d.Parts) + 1
	skel := skeleton.New(d.Chassis.Name, "")
	ids := map[string]skeleton.NodeID{d.Chassis.Name: skel.RootID()}

	m, err := buildMesh(d.Chassis, mesher)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: chassis: %v", ErrDescription, err)
	}
	meshes := []*codec.Mesh{m}
	if progress != nil {
		progress(1, total, StageTessellate)
	}

	for i, p := range d.Parts {
		if p.Name == "" {
			return nil, nil, fmt.Errorf("%w: part %d has no name", ErrDescription, i)
		}
		if _, dup := ids[p.Name]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate part %q", ErrDescription, p.Name)
		}
		parent := p.Parent
		if parent == "" {
			parent = d.Chassis.Name
		}
		pid, ok := ids[parent]
		if !ok {
			return nil, nil, fmt.Errorf("%w: part %q: unknown parent %q", ErrDescription, p.Name, parent)
		}
		if p.Joint == nil {
			return nil, nil, fmt.Errorf("%w: part %q has no joint", ErrDescription, p.Name)
		}

		j, err := p.Joint.joint()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: part %q: %v", ErrDescription, p.Name, err)
		}
		if p.Driver != nil {
			drv, err := p.Driver.driver()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: part %q: %v", ErrDescription, p.Name, err)
			}
			if drv.Kind != skeleton.NoDriver {
				j.Driver = drv
			}
		}

		id, err := skel.AddChild(pid, p.Name, "", j)
		if err != nil {
			return nil, nil, err
		}
		ids[p.Name] = id

		m, err := buildMesh(p, mesher)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: part %q: %v", ErrDescription, p.Name, err)
		}
		meshes = append(meshes, m)
		if progress != nil {
			progress(i+2, total, StageTessellate)
		}
	}
	return skel, meshes, nil
}

func buildMesh(p Part, mesher Mesher) (*codec.Mesh, error) {
	if p.Density < 0 {
		return nil, fmt.Errorf("negative density %v", p.Density)
	}
	m, err := mesher.Mesh(p.Shape)
	if err != nil {
		return nil, err
	}
	m.Mass = p.Density * p.Shape.Volume()
	return m, nil
}
