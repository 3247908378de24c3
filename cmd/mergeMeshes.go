package cmd

import (
	"fmt"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ehsanMa86/OpenFOAM-dev/decomposition"
	"github.com/ehsanMa86/OpenFOAM-dev/meshadder"
)

// MergeMeshesCmd represents the mergeMeshes command
var MergeMeshesCmd = &cobra.Command{
	Use:   "mergeMeshes <addCase>",
	Short: "Add the mesh of another case to the mesh of this case",
	Long: `
Appends the newest mesh of addCase to the newest mesh of the case without
stitching any faces. Patches and zones of the same name are merged; a patch
whose name clashes with one of another type is renamed after its case. The
result replaces the mesh of the case at its instance.

gofoam mergeMeshes -c <masterCase> <addCase>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addRegion, _ := cmd.Flags().GetString("addRegion")
		return run("mergeMeshes", func() error { return mergeMeshes(args[0], addRegion) })
	},
}

func init() {
	rootCmd.AddCommand(MergeMeshesCmd)
	MergeMeshesCmd.Flags().String("addRegion", "", "mesh region of the added case")
}

func mergeMeshes(addCase, addRegion string) (err error) {
	master, err := newDomain(0, decomposition.SortStrategy)
	if err != nil {
		return
	}
	if err = master.ReadComplete(); err != nil {
		return fmt.Errorf("master case: %w", err)
	}
	if addCase, err = homedir.Expand(addCase); err != nil {
		return
	}
	added := decomposition.NewDomainDecomposition(decomposition.Config{
		CaseDir: addCase,
		Region:  addRegion,
		Logger:  logrus.StandardLogger(),
	})
	if err = added.ReadComplete(); err != nil {
		return fmt.Errorf("added case: %w", err)
	}
	merged, am, err := meshadder.Merge(master.CompleteMesh(), added.CompleteMesh(),
		meshadder.AddOptions{Logger: logrus.WithField("case", viper.GetString("case"))})
	if err != nil {
		return
	}
	instance := master.CompleteInstance()
	master.SetComplete(merged, instance)
	if err = master.WriteComplete(instance); err != nil {
		return fmt.Errorf("writing merged mesh: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"instance":     instance,
		"cells":        merged.NCells(),
		"addedCells":   len(am.CellMap1),
		"addedPatches": len(am.PatchMap1),
	}).Info("meshes merged")
	return
}
