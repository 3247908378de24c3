package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// InstanceTime parses a time directory name. "constant" is not a time.
func InstanceTime(instance string) (t float64, ok bool) {
	var err error
	if t, err = strconv.ParseFloat(instance, 64); err != nil {
		return 0, false
	}
	return t, true
}

// InstanceLess orders instances oldest first: constant, then by time. Names
// that are neither sort last by name.
func InstanceLess(a, b string) bool {
	rank := func(s string) (int, float64) {
		if s == Constant {
			return 0, 0
		}
		if t, ok := InstanceTime(s); ok {
			return 1, t
		}
		return 2, 0
	}
	ra, ta := rank(a)
	rb, tb := rank(b)
	switch {
	case ra != rb:
		return ra < rb
	case ra == 1 && ta != tb:
		return ta < tb
	default:
		return a < b
	}
}

// MeshInstances lists the instances of caseDir holding a mesh for region,
// oldest first
func MeshInstances(caseDir, region string) (instances []string, err error) {
	var entries []os.DirEntry
	if entries, err = os.ReadDir(caseDir); err != nil {
		return nil, fmt.Errorf("listing %s: %w", caseDir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if _, isTime := InstanceTime(name); name != Constant && !isTime {
			continue
		}
		if HasPolyMesh(MeshDir(caseDir, name, region)) {
			instances = append(instances, name)
		}
	}
	sort.Slice(instances, func(i, j int) bool { return InstanceLess(instances[i], instances[j]) })
	return
}

// LatestMeshInstance is the newest instance of caseDir holding a mesh, or
// ErrNoMesh
func LatestMeshInstance(caseDir, region string) (string, error) {
	instances, err := MeshInstances(caseDir, region)
	if err != nil {
		return "", err
	}
	if len(instances) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoMesh, caseDir)
	}
	return instances[len(instances)-1], nil
}

// ProcessorDir is the directory of partition proc
func ProcessorDir(caseDir string, proc int) string {
	return filepath.Join(caseDir, fmt.Sprintf("processor%d", proc))
}

// NumProcessorDirs counts the processor<N> directories of caseDir. They must
// be numbered 0 to N-1 without gaps.
func NumProcessorDirs(caseDir string) (n int, err error) {
	entries, err := os.ReadDir(caseDir)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", caseDir, err)
	}
	seen := make(map[int]bool)
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasPrefix(name, "processor") {
			continue
		}
		p, perr := strconv.Atoi(strings.TrimPrefix(name, "processor"))
		if perr != nil || p < 0 {
			continue
		}
		seen[p] = true
	}
	for n = 0; seen[n]; n++ {
	}
	if n != len(seen) {
		return 0, fmt.Errorf("processor directories in %s are not numbered 0 to %d", caseDir, len(seen)-1)
	}
	return
}

// RemoveProcessorDirs deletes every processor<N> directory of caseDir
func RemoveProcessorDirs(caseDir string) error {
	n, err := NumProcessorDirs(caseDir)
	if err != nil {
		return err
	}
	for p := 0; p < n; p++ {
		if err = os.RemoveAll(ProcessorDir(caseDir, p)); err != nil {
			return fmt.Errorf("removing processor %d: %w", p, err)
		}
	}
	return nil
}
