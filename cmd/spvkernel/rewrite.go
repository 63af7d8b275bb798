package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [flags] file.spv -o out.spv",
	Short: "Turn kernel local variables into arguments",
	Long:  `Rewrite moves each kernel's Workgroup variables into trailing pointer arguments so the runtime can size local memory at launch`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRewrite,
}

func init() {
	rewriteCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	rewriteCmd.Flags().Bool("atomic-workaround", false, "also patch mistyped atomic compare-exchange")
}

func runRewrite(cmd *cobra.Command, args []string) error {
	s := cfg
	s.PromoteLocals = true
	s.UseCache = false

	mods, err := loadModules(cmd.Context(), args, s)
	if err != nil {
		return err
	}
	m := mods[0]
	if rep := m.Program.Promotions; rep != nil {
		log := cmd.ErrOrStderr()
		for _, p := range rep.Promotions {
			fmt.Fprintf(log, "%s: %s -> argument %d (%s)\n",
				kernelColor.Sprint(p.Kernel), argColor.Sprint(p.Name), p.Param, humanize.IBytes(p.Extent.Size))
		}
		if n := len(rep.Nested); n > 0 {
			fmt.Fprintf(log, "%s\n", noteColor.Sprintf("%d local variable(s) in helper functions left in place", n))
		}
		if n := len(rep.Shared); n > 0 {
			fmt.Fprintf(log, "%s\n", noteColor.Sprintf("%d local variable(s) shared across functions left in place", n))
		}
	}
	return writeOutput(cmd, m.Output)
}
