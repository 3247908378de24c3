package cmd

import (
	"fmt"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ehsanMa86/OpenFOAM-dev/InputParameters"
	"github.com/ehsanMa86/OpenFOAM-dev/decomposition"
)

// ReorderPatchesCmd represents the reorderPatches command
var ReorderPatchesCmd = &cobra.Command{
	Use:   "reorderPatches",
	Short: "Reorder the patches of a mesh",
	Long: `
Puts the patches of the newest mesh of the case in the order of a reference
case, of an explicit list, or of the patchOrder entry of a dictionary. The
faces are renumbered to keep every patch contiguous.

gofoam reorderPatches -c <case> --reference <referenceCase>
gofoam reorderPatches -c <case> --order inlet,outlet,walls`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reference, _ := cmd.Flags().GetString("reference")
		order, _ := cmd.Flags().GetStringSlice("order")
		dictFile, _ := cmd.Flags().GetString("dict")
		return run("reorderPatches", func() error { return reorderPatches(reference, order, dictFile) })
	},
}

func init() {
	rootCmd.AddCommand(ReorderPatchesCmd)
	ReorderPatchesCmd.Flags().String("reference", "", "case whose patch order is copied")
	ReorderPatchesCmd.Flags().StringSlice("order", nil, "patch names in the new order")
	ReorderPatchesCmd.Flags().StringP("dict", "d", "", "dictionary holding a patchOrder list, relative to the case")
}

func reorderPatches(reference string, order []string, dictFile string) (err error) {
	d, err := newDomain(0, decomposition.SortStrategy)
	if err != nil {
		return
	}
	if err = d.ReadComplete(); err != nil {
		return
	}
	if order, err = patchOrder(reference, order, dictFile); err != nil {
		return
	}
	reordered, _, err := d.CompleteMesh().ReorderPatchesByName(order)
	if err != nil {
		return
	}
	if err = reordered.Check(); err != nil {
		return fmt.Errorf("reordered mesh: %w", err)
	}
	d.SetComplete(reordered, d.CompleteInstance())
	if err = d.WriteComplete(d.CompleteInstance()); err != nil {
		return
	}
	logrus.WithField("order", order).Info("patches reordered")
	return
}

// patchOrder picks the new patch order from exactly one of the sources
func patchOrder(reference string, order []string, dictFile string) (names []string, err error) {
	given := 0
	for _, set := range []bool{reference != "", len(order) > 0, dictFile != ""} {
		if set {
			given++
		}
	}
	if given != 1 {
		return nil, fmt.Errorf("give exactly one of --reference, --order and --dict")
	}
	switch {
	case len(order) > 0:
		return order, nil
	case dictFile != "":
		var dir string
		if dir, err = caseDir(); err != nil {
			return
		}
		var dp *InputParameters.DecomposeParDict
		if dp, err = InputParameters.ReadDecomposeParDict(inCase(dir, dictFile)); err != nil {
			return
		}
		if len(dp.PatchOrder) == 0 {
			return nil, fmt.Errorf("%s has no patchOrder", dictFile)
		}
		return dp.PatchOrder, nil
	}
	if reference, err = homedir.Expand(reference); err != nil {
		return
	}
	ref := decomposition.NewDomainDecomposition(decomposition.Config{
		CaseDir: reference,
		Logger:  logrus.StandardLogger(),
	})
	if err = ref.ReadComplete(); err != nil {
		return nil, fmt.Errorf("reference case: %w", err)
	}
	return ref.CompleteMesh().PatchNames(), nil
}
