// Package files reads and writes meshes in the case directory layout:
//
//	<case>/constant/polyMesh/{points,faces,owner,neighbour,boundary,...}
//	<case>/<time>/polyMesh/...
//	<case>/processor<N>/<instance>/polyMesh/...
//
// Every file is a YAML document with a FoamFile header.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
)

const (
	Constant      = "constant"
	PolyMeshDir   = "polyMesh"
	formatVersion = "2.0"
)

var ErrNoMesh = errors.New("no mesh found")

type header struct {
	Version string `json:"version"`
	Class   string `json:"class"`
	Object  string `json:"object"`
}

type document[T any] struct {
	FoamFile header `json:"FoamFile"`
	Data     T      `json:"data"`
}

// WriteObject writes data as the named object in dir
func WriteObject[T any](dir, object, class string, data T) (err error) {
	if err = os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	doc := document[T]{
		FoamFile: header{Version: formatVersion, Class: class, Object: object},
		Data:     data,
	}
	var out []byte
	if out, err = yaml.Marshal(doc); err != nil {
		return fmt.Errorf("encoding %s: %w", object, err)
	}
	fileName := filepath.Join(dir, object)
	if err = os.WriteFile(fileName, out, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", fileName, err)
	}
	return
}

// ReadObject reads the named object from dir. A missing file gives an error
// wrapping os.ErrNotExist.
func ReadObject[T any](dir, object string) (data T, err error) {
	var (
		fileName = filepath.Join(dir, object)
		in       []byte
		doc      document[T]
	)
	if in, err = os.ReadFile(fileName); err != nil {
		return data, fmt.Errorf("reading %s: %w", fileName, err)
	}
	if err = yaml.Unmarshal(in, &doc); err != nil {
		return data, fmt.Errorf("parsing %s: %w", fileName, err)
	}
	return doc.Data, nil
}

// Exists reports whether the named object is present in dir
func Exists(dir, object string) bool {
	_, err := os.Stat(filepath.Join(dir, object))
	return err == nil
}

func WriteLabelList(dir, object string, labels []int) error {
	return WriteObject(dir, object, "labelList", labels)
}

func ReadLabelList(dir, object string) ([]int, error) {
	return ReadObject[[]int](dir, object)
}

// MeshDir is the polyMesh directory of a case instance and region. The
// default region is "".
func MeshDir(caseDir, instance, region string) string {
	return filepath.Join(caseDir, instance, region, PolyMeshDir)
}

// HasPolyMesh reports whether dir holds a complete set of mesh files
func HasPolyMesh(dir string) bool {
	for _, object := range []string{"points", "faces", "owner", "neighbour", "boundary"} {
		if !Exists(dir, object) {
			return false
		}
	}
	return true
}

// WritePolyMesh writes the primitives, patches and zones of m to dir
func WritePolyMesh(dir string, m *mesh.PolyMesh) (err error) {
	points := make([][3]float64, len(m.Points))
	for i, p := range m.Points {
		points[i] = [3]float64{p.X, p.Y, p.Z}
	}
	writers := []func() error{
		func() error { return WriteObject(dir, "points", "vectorField", points) },
		func() error { return WriteObject(dir, "faces", "faceList", m.Faces) },
		func() error { return WriteLabelList(dir, "owner", m.Owner) },
		func() error { return WriteLabelList(dir, "neighbour", m.Neighbour) },
		func() error { return WriteObject(dir, "boundary", "polyBoundaryMesh", m.Patches) },
		func() error { return WriteObject(dir, "pointZones", "regIOobject", m.PointZones) },
		func() error { return WriteObject(dir, "faceZones", "regIOobject", m.FaceZones) },
		func() error { return WriteObject(dir, "cellZones", "regIOobject", m.CellZones) },
	}
	for _, write := range writers {
		if err = write(); err != nil {
			return
		}
	}
	return
}

// ReadPolyMesh reads the mesh in dir and names it name. Zone files are
// optional.
func ReadPolyMesh(dir, name string) (m *mesh.PolyMesh, err error) {
	if !HasPolyMesh(dir) {
		return nil, fmt.Errorf("%w in %s", ErrNoMesh, dir)
	}
	var (
		points    [][3]float64
		faces     [][]int
		owner     []int
		neighbour []int
		patches   []mesh.Patch
	)
	if points, err = ReadObject[[][3]float64](dir, "points"); err != nil {
		return
	}
	if faces, err = ReadObject[[][]int](dir, "faces"); err != nil {
		return
	}
	if owner, err = ReadLabelList(dir, "owner"); err != nil {
		return
	}
	if neighbour, err = ReadLabelList(dir, "neighbour"); err != nil {
		return
	}
	if patches, err = ReadObject[[]mesh.Patch](dir, "boundary"); err != nil {
		return
	}
	pts := make([]r3.Vec, len(points))
	for i, p := range points {
		pts[i] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	m = mesh.NewPolyMesh(name, pts, faces, owner, neighbour, patches)
	for _, z := range []struct {
		object string
		zones  *mesh.ZoneList
	}{
		{"pointZones", &m.PointZones},
		{"faceZones", &m.FaceZones},
		{"cellZones", &m.CellZones},
	} {
		if !Exists(dir, z.object) {
			continue
		}
		if *z.zones, err = ReadObject[mesh.ZoneList](dir, z.object); err != nil {
			return nil, err
		}
	}
	if err = m.Check(); err != nil {
		return nil, fmt.Errorf("mesh in %s: %w", dir, err)
	}
	return
}
