package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ehsanMa86/OpenFOAM-dev/decomposition"
)

// ReconstructParCmd represents the reconstructPar command
var ReconstructParCmd = &cobra.Command{
	Use:   "reconstructPar",
	Short: "Fold the processor meshes of a case back into the complete mesh",
	Long: `
Reads the newest processor meshes of the case, stitches the processor patches
back into internal faces and writes the complete mesh together with the
processor addressing. A complete mesh already as new as the processor meshes
is kept.

gofoam reconstructPar -c <case> [-n <processors>] [-s sort|quadratic]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		nProcs, _ := cmd.Flags().GetInt("nProcs")
		s, _ := cmd.Flags().GetString("strategy")
		strategy, err := decomposition.ParseStrategy(s)
		if err != nil {
			return err
		}
		stats, _ := cmd.Flags().GetBool("statistics")
		return run("reconstructPar", func() error { return reconstructPar(nProcs, strategy, stats) })
	},
}

func init() {
	rootCmd.AddCommand(ReconstructParCmd)
	ReconstructParCmd.Flags().IntP("nProcs", "n", 0, "number of processors, 0 counts the processor directories")
	ReconstructParCmd.Flags().StringP("strategy", "s", "sort", "ordering of non-conformal faces: sort or quadratic")
	ReconstructParCmd.Flags().Bool("statistics", false, "print statistics of the complete mesh")
}

func reconstructPar(nProcs int, strategy decomposition.Strategy, stats bool) (err error) {
	d, err := newDomain(nProcs, strategy)
	if err != nil {
		return
	}
	reconstructed, err := d.ReadReconstruct()
	if err != nil {
		return
	}
	if reconstructed {
		if err = d.WriteComplete(d.CompleteInstance()); err != nil {
			return fmt.Errorf("writing complete mesh: %w", err)
		}
		if err = d.WriteAddressing(d.ProcsInstance()); err != nil {
			return fmt.Errorf("writing processor addressing: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"processors": d.NProcs(),
			"instance":   d.CompleteInstance(),
		}).Info("reconstruction written")
	}
	if stats {
		d.CompleteMesh().PrintStatistics()
	}
	return
}
