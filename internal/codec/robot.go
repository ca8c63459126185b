package codec

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/rigsim/internal/skeleton"
)

// Progress is called after each file of a robot is written or read.
type Progress func(done, total int, stage string)

const (
	StageSkeleton = "skeleton"
	StageMesh     = "mesh"
)

// MeshFileName is the default mesh file for the node at traversal
// position i.
func MeshFileName(i int) string {
	return fmt.Sprintf("node_%d.rsm", i)
}

// WriteRobot writes skel and one mesh per node into dir. meshes is indexed
// by NodeID; a nil entry writes an empty mesh. Nodes without a mesh file
// name are assigned MeshFileName of their traversal position, which is also
// their record position in the skeleton file; skel itself is not modified.
func WriteRobot(dir string, skel *skeleton.Skeleton, meshes []*Mesh, progress Progress) error {
	if len(meshes) > skel.Len() {
		return fmt.Errorf("codec: %d meshes for %d nodes", len(meshes), skel.Len())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("codec: create %s: %w", dir, err)
	}

	out := skel.Clone()
	order := out.Nodes()
	seen := make(map[string]skeleton.NodeID, len(order))
	for i, n := range order {
		if n.MeshFile == "" {
			n.MeshFile = MeshFileName(i)
		}
		if err := checkMeshName(n.MeshFile); err != nil {
			return err
		}
		if prev, dup := seen[n.MeshFile]; dup {
			return &FormatError{File: SkeletonFileName, Offset: -1, Reason: fmt.Sprintf("nodes %d and %d share mesh file %q", prev, n.ID, n.MeshFile)}
		}
		seen[n.MeshFile] = n.ID
	}

	total := len(order) + 1
	if err := writeFile(filepath.Join(dir, SkeletonFileName), func(w *bufio.Writer) error {
		return EncodeSkeleton(w, out)
	}); err != nil {
		return err
	}
	report(progress, 1, total, StageSkeleton)

	for i, n := range order {
		m := &Mesh{}
		if int(n.ID) < len(meshes) && meshes[n.ID] != nil {
			m = meshes[n.ID]
		}
		if err := writeFile(filepath.Join(dir, n.MeshFile), func(w *bufio.Writer) error {
			return encodeMesh(w, m, n.MeshFile)
		}); err != nil {
			return err
		}
		report(progress, i+2, total, StageMesh)
	}
	return nil
}

// ReadRobot loads a robot directory written by WriteRobot. The returned
// meshes are indexed by NodeID, which for a WriteRobot directory is the
// traversal position.
func ReadRobot(dir string, progress Progress) (*skeleton.Skeleton, []*Mesh, error) {
	f, err := os.Open(filepath.Join(dir, SkeletonFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("codec: %w", err)
	}
	skel, err := decodeSkeleton(bufio.NewReader(f), SkeletonFileName)
	f.Close()
	if err != nil {
		return nil, nil, err
	}

	total := skel.Len() + 1
	report(progress, 1, total, StageSkeleton)

	meshes := make([]*Mesh, skel.Len())
	done := 1
	for n := range skel.ListAllNodes() {
		if err := checkMeshName(n.MeshFile); err != nil {
			return nil, nil, err
		}
		m, err := readMesh(filepath.Join(dir, n.MeshFile), n.MeshFile)
		if err != nil {
			return nil, nil, err
		}
		meshes[n.ID] = m
		done++
		report(progress, done, total, StageMesh)
	}
	return skel, meshes, nil
}

func readMesh(path, name string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	defer f.Close()
	return decodeMesh(bufio.NewReader(f), name)
}

func writeFile(path string, encode func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("codec: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := encode(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("codec: write %s: %w", path, err)
	}
	return f.Close()
}

// checkMeshName keeps mesh references inside the robot directory.
func checkMeshName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || name == SkeletonFileName {
		return &FormatError{File: SkeletonFileName, Offset: -1, Reason: fmt.Sprintf("invalid mesh file name %q", name)}
	}
	return nil
}

func report(p Progress, done, total int, stage string) {
	if p != nil {
		p(done, total, stage)
	}
}
