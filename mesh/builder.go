package mesh

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// ElementType is the shape of a cell given by its vertices
type ElementType int

const (
	Tet ElementType = iota
	Hex
	Prism
	Pyramid
)

func (e ElementType) String() string {
	return [...]string{"Tet", "Hex", "Prism", "Pyramid"}[e]
}

// GetElementFaces returns the face loops of a cell, each wound so that its
// normal points out of the cell
func GetElementFaces(elemType ElementType, vertices []int) [][]int {
	switch elemType {
	case Tet:
		return [][]int{
			{vertices[0], vertices[2], vertices[1]},
			{vertices[0], vertices[1], vertices[3]},
			{vertices[1], vertices[2], vertices[3]},
			{vertices[0], vertices[3], vertices[2]},
		}
	case Hex:
		return [][]int{
			{vertices[0], vertices[3], vertices[2], vertices[1]}, // bottom
			{vertices[4], vertices[5], vertices[6], vertices[7]}, // top
			{vertices[0], vertices[1], vertices[5], vertices[4]},
			{vertices[1], vertices[2], vertices[6], vertices[5]},
			{vertices[2], vertices[3], vertices[7], vertices[6]},
			{vertices[3], vertices[0], vertices[4], vertices[7]},
		}
	case Prism:
		return [][]int{
			{vertices[0], vertices[2], vertices[1]},
			{vertices[3], vertices[4], vertices[5]},
			{vertices[0], vertices[1], vertices[4], vertices[3]},
			{vertices[1], vertices[2], vertices[5], vertices[4]},
			{vertices[2], vertices[0], vertices[3], vertices[5]},
		}
	case Pyramid:
		return [][]int{
			{vertices[0], vertices[3], vertices[2], vertices[1]},
			{vertices[0], vertices[1], vertices[4]},
			{vertices[1], vertices[2], vertices[4]},
			{vertices[2], vertices[3], vertices[4]},
			{vertices[3], vertices[0], vertices[4]},
		}
	default:
		return [][]int{}
	}
}

// BoundaryClassifier names the patch a boundary face belongs to, given its
// centre and area vector
type BoundaryClassifier func(centre, areaVector r3.Vec) string

type builderFace struct {
	loop  []int
	owner int
	nbr   int
}

// BuildPolyMesh converts cell-to-vertex connectivity into a face-addressed
// mesh. Shared faces are matched on their sorted vertex key. Boundary faces
// go to the patch named by classify, patches are laid out in the order given
// by patches; a face classified into an unlisted patch is an error.
func BuildPolyMesh(name string, points []r3.Vec, elemTypes []ElementType, elems [][]int,
	patches []Patch, classify BoundaryClassifier) (m *PolyMesh, err error) {
	if len(elemTypes) != len(elems) {
		return nil, fmt.Errorf("%d element types for %d elements", len(elemTypes), len(elems))
	}
	var (
		faces   []builderFace
		faceMap = make(map[string]int)
	)
	for elemID, vertices := range elems {
		for _, faceVerts := range GetElementFaces(elemTypes[elemID], vertices) {
			sorted := make([]int, len(faceVerts))
			copy(sorted, faceVerts)
			sort.Ints(sorted)
			key := fmt.Sprintf("%v", sorted)

			if faceID, exists := faceMap[key]; exists {
				face := &faces[faceID]
				if face.nbr != -1 {
					return nil, fmt.Errorf("face %v shared by more than two cells", sorted)
				}
				// Elements are visited in order so the first visitor owns the face
				face.nbr = elemID
			} else {
				faceMap[key] = len(faces)
				faces = append(faces, builderFace{loop: faceVerts, owner: elemID, nbr: -1})
			}
		}
	}

	var (
		internal []int
		patchID  = make(map[string]int, len(patches))
		byPatch  = make([][]int, len(patches))
	)
	for i := range patches {
		patchID[patches[i].Name] = i
	}
	for f := range faces {
		if faces[f].nbr != -1 {
			internal = append(internal, f)
			continue
		}
		tmp := &PolyMesh{Points: points, Faces: [][]int{faces[f].loop}}
		pname := classify(tmp.FaceCentre(0), tmp.FaceAreaVector(0))
		pi, ok := patchID[pname]
		if !ok {
			return nil, fmt.Errorf("boundary face %v classified into unknown patch %q",
				faces[f].loop, pname)
		}
		byPatch[pi] = append(byPatch[pi], f)
	}
	sort.SliceStable(internal, func(a, b int) bool {
		fa, fb := &faces[internal[a]], &faces[internal[b]]
		if fa.owner != fb.owner {
			return fa.owner < fb.owner
		}
		return fa.nbr < fb.nbr
	})

	m = NewPolyMesh(name, points, nil, nil, nil, make([]Patch, len(patches)))
	for _, f := range internal {
		m.Faces = append(m.Faces, faces[f].loop)
		m.Owner = append(m.Owner, faces[f].owner)
		m.Neighbour = append(m.Neighbour, faces[f].nbr)
	}
	for pi := range patches {
		p := patches[pi].Clone()
		p.Start, p.Size = len(m.Faces), len(byPatch[pi])
		for _, f := range byPatch[pi] {
			m.Faces = append(m.Faces, faces[f].loop)
			m.Owner = append(m.Owner, faces[f].owner)
		}
		m.Patches[pi] = p
	}
	m.SetNCells(len(elems))
	return
}

// BoxPatchNames are the patches of a box mesh, for the -x, +x, -y, +y, -z
// and +z sides
var BoxPatchNames = [6]string{"xMin", "xMax", "yMin", "yMax", "zMin", "zMax"}

// NewBoxMesh builds an nx by ny by nz block of hexahedra spanning lo to hi.
// Cells are numbered with x fastest.
func NewBoxMesh(name string, nx, ny, nz int, lo, hi r3.Vec) (m *PolyMesh, err error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("box mesh needs at least one cell per direction, have %dx%dx%d",
			nx, ny, nz)
	}
	var (
		points = make([]r3.Vec, 0, (nx+1)*(ny+1)*(nz+1))
		pid    = func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }
		d      = r3.Sub(hi, lo)
	)
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				points = append(points, r3.Vec{
					X: lo.X + d.X*float64(i)/float64(nx),
					Y: lo.Y + d.Y*float64(j)/float64(ny),
					Z: lo.Z + d.Z*float64(k)/float64(nz),
				})
			}
		}
	}
	var (
		elems     = make([][]int, 0, nx*ny*nz)
		elemTypes = make([]ElementType, 0, nx*ny*nz)
	)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				elems = append(elems, []int{
					pid(i, j, k), pid(i+1, j, k), pid(i+1, j+1, k), pid(i, j+1, k),
					pid(i, j, k+1), pid(i+1, j, k+1), pid(i+1, j+1, k+1), pid(i, j+1, k+1),
				})
				elemTypes = append(elemTypes, Hex)
			}
		}
	}
	patches := make([]Patch, len(BoxPatchNames))
	for i, pname := range BoxPatchNames {
		patches[i] = Patch{Name: pname, Kind: KindPatch}
	}
	return BuildPolyMesh(name, points, elemTypes, elems, patches, ClassifyByNormal)
}

// ClassifyByNormal assigns a boundary face to one of BoxPatchNames by the
// dominant direction of its normal
func ClassifyByNormal(_, n r3.Vec) string {
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax >= ay && ax >= az:
		if n.X < 0 {
			return BoxPatchNames[0]
		}
		return BoxPatchNames[1]
	case ay >= az:
		if n.Y < 0 {
			return BoxPatchNames[2]
		}
		return BoxPatchNames[3]
	default:
		if n.Z < 0 {
			return BoxPatchNames[4]
		}
		return BoxPatchNames[5]
	}
}
