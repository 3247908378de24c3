package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ehsanMa86/OpenFOAM-dev/decomposition"
	"github.com/ehsanMa86/OpenFOAM-dev/partition"
)

// CheckMeshCmd represents the checkMesh command
var CheckMeshCmd = &cobra.Command{
	Use:   "checkMesh",
	Short: "Check the mesh of a case and print its statistics",
	Long: `
Reads the newest complete mesh of the case, checks its topology, patches and
zones and prints its statistics. With --processors the processor meshes are
checked too, along with their consistency with the complete mesh and the
quality of the decomposition.

gofoam checkMesh -c <case> [--processors]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		procs, _ := cmd.Flags().GetBool("processors")
		return run("checkMesh", func() error { return checkMesh(procs) })
	},
}

func init() {
	rootCmd.AddCommand(CheckMeshCmd)
	CheckMeshCmd.Flags().BoolP("processors", "p", false, "also check the processor meshes")
}

func checkMesh(procs bool) (err error) {
	d, err := newDomain(0, decomposition.SortStrategy)
	if err != nil {
		return
	}
	if err = d.ReadComplete(); err != nil {
		return
	}
	m := d.CompleteMesh()
	m.PrintStatistics()
	if err = m.Check(); err != nil {
		return fmt.Errorf("mesh %s: %w", m.Name, err)
	}
	if !procs {
		logrus.Info("mesh OK")
		return
	}
	if err = d.ReadProcs(); err != nil {
		return
	}
	for p, pm := range d.ProcMeshes() {
		if err = pm.Check(); err != nil {
			return fmt.Errorf("processor %d: %w", p, err)
		}
	}
	if err = d.CheckConsistency(); err != nil {
		return
	}
	if d.HasProcAddressing() {
		partition.Analyze(m, d.CellProc(), d.NProcs()).Log(logrus.StandardLogger())
	}
	logrus.WithField("processors", d.NProcs()).Info("mesh and processor meshes OK")
	return
}
