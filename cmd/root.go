package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ehsanMa86/OpenFOAM-dev/decomposition"
)

var (
	cfgFile  string
	profiler interface{ Stop() }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gofoam",
	Short: "Decompose, reconstruct and merge polyhedral meshes",
	Long: `
Splits a polyhedral mesh case into processor meshes for parallel runs and
folds processor meshes back into the complete mesh, keeping the addressing
between the two.

gofoam decomposePar -c <case>
gofoam reconstructPar -c <case>`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		logrus.SetLevel(logrus.InfoLevel)
		if viper.GetBool("verbose") {
			logrus.SetLevel(logrus.DebugLevel)
		}
		switch p := viper.GetString("profile"); p {
		case "":
		case "cpu":
			profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
		case "mem":
			profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
		default:
			return fmt.Errorf("unknown profile %q, expected cpu or mem", p)
		}
		return
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gofoam.yaml)")
	flags.StringP("case", "c", ".", "case directory")
	flags.StringP("region", "r", "", "mesh region, empty for the default region")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.String("profile", "", "write a cpu or mem profile to the working directory")
	flags.Bool("perf", false, "count CPU instructions of the command (Linux)")
	for _, name := range []string{"case", "region", "verbose", "profile", "perf"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".gofoam")
	}
	viper.SetEnvPrefix("gofoam")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		logrus.WithField("config", viper.ConfigFileUsed()).Debug("using config file")
	}
}

// caseDir is the case directory with a leading ~ expanded
func caseDir() (dir string, err error) {
	if dir, err = homedir.Expand(viper.GetString("case")); err != nil {
		return "", fmt.Errorf("case directory: %w", err)
	}
	return filepath.Clean(dir), nil
}

// newDomain opens the case named by the flags for nProcs processors
func newDomain(nProcs int, strategy decomposition.Strategy) (d *decomposition.DomainDecomposition, err error) {
	dir, err := caseDir()
	if err != nil {
		return
	}
	cfg := decomposition.Config{
		CaseDir:  dir,
		Region:   viper.GetString("region"),
		NProcs:   nProcs,
		Strategy: strategy,
		Logger:   logrus.StandardLogger(),
	}
	return decomposition.NewDomainDecomposition(cfg), nil
}

// run executes f, counting its instructions when --perf is set
func run(name string, f func() error) error {
	if !viper.GetBool("perf") {
		return f()
	}
	return measure(name, f)
}
