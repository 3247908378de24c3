package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ehsanMa86/OpenFOAM-dev/InputParameters"
	"github.com/ehsanMa86/OpenFOAM-dev/decomposition"
	"github.com/ehsanMa86/OpenFOAM-dev/partition"
)

// DecomposeParCmd represents the decomposePar command
var DecomposeParCmd = &cobra.Command{
	Use:   "decomposePar",
	Short: "Split the complete mesh of a case into processor meshes",
	Long: `
Reads the newest complete mesh of the case and the decomposition dictionary,
assigns every cell to a processor and writes processor<N> directories with
their meshes and addressing. Processor meshes already as new as the complete
mesh are kept unless --force is given.

gofoam decomposePar -c <case> [-d system/decomposeParDict.yaml]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dictFile, _ := cmd.Flags().GetString("dict")
		force, _ := cmd.Flags().GetBool("force")
		return run("decomposePar", func() error { return decomposePar(dictFile, force) })
	},
}

func init() {
	rootCmd.AddCommand(DecomposeParCmd)
	DecomposeParCmd.Flags().StringP("dict", "d", filepath.Join("system", "decomposeParDict.yaml"),
		"decomposition dictionary, YAML or TOML (.toml), relative to the case")
	DecomposeParCmd.Flags().BoolP("force", "f", false, "remove existing processor directories first")
}

func decomposePar(dictFile string, force bool) (err error) {
	dir, err := caseDir()
	if err != nil {
		return
	}
	dp, err := InputParameters.ReadDecomposeParDict(inCase(dir, dictFile))
	if err != nil {
		return
	}
	dp.Print()
	if dp.Method == "manual" && dp.ManualCoeffs.DataFile != "" {
		dp.ManualCoeffs.DataFile = inCase(dir, dp.ManualCoeffs.DataFile)
	}
	method, err := partition.NewMethod(dp)
	if err != nil {
		return
	}
	strategy, err := decomposition.ParseStrategy(dp.NonConformalStrategy)
	if err != nil {
		return
	}
	d, err := newDomain(dp.NumberOfSubdomains, strategy)
	if err != nil {
		return
	}
	if force {
		if err = d.RemoveProcs(); err != nil {
			return
		}
	}
	decomposed, err := d.ReadDecompose(method)
	if err != nil {
		return
	}
	if !decomposed {
		return
	}
	if err = d.WriteProcs(d.ProcsInstance()); err != nil {
		return fmt.Errorf("writing processor meshes: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"processors": d.NProcs(),
		"instance":   d.ProcsInstance(),
	}).Info("decomposition written")
	return
}

// inCase resolves a path relative to the case directory
func inCase(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
