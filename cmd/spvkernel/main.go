package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/spvkernel/autolocals"
	"github.com/wippyai/spvkernel/frontend"
	"github.com/wippyai/spvkernel/kcache"
	"github.com/wippyai/spvkernel/signature"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:           "spvkernel",
	Short:         "Inspect and prepare OpenCL SPIR-V kernels",
	Long:          `spvkernel extracts kernel launch metadata from SPIR-V modules and applies the rewrites a runtime needs before handing them to a driver`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		cfg = s
		configureOutput(s)
		return nil
	},
}

// cfg holds the settings resolved for the running command.
var cfg settings

func main() {
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(workaroundCmd)
	rootCmd.AddCommand(clspvMapCmd)
	rootCmd.AddCommand(browseCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "TOML config file (default ./spvkernel.toml when present)")
	pf.Int("devices", 1, "device slots per kernel")
	pf.Int("jobs", 0, "modules processed concurrently (0 = GOMAXPROCS)")
	pf.Bool("verbose", false, "log pass details to stderr")
	pf.Bool("no-color", false, "disable colored output")
	pf.Bool("cache", false, "reuse metadata from the on-disk cache")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("Error: ")+err.Error())
		os.Exit(1)
	}
}

func configureOutput(s settings) {
	switch s.Color {
	case colorOn:
		color.NoColor = false
	case colorOff:
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stdout)
	}

	log := zap.NewNop()
	if s.Verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			log = l
		}
	}
	signature.SetLogger(log.Named("signature"))
	autolocals.SetLogger(log.Named("autolocals"))
	frontend.SetLogger(log.Named("frontend"))
	kcache.SetLogger(log.Named("kcache"))
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
