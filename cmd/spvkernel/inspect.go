package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] file.spv...",
	Short: "Print kernel launch metadata",
	Long:  `Inspect extracts every OpenCL kernel's argument layout and execution modes`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().Bool("promote-locals", false, "report metadata after turning kernel local variables into arguments")
	inspectCmd.Flags().Bool("atomic-workaround", false, "patch mistyped atomic compare-exchange before extraction")
}

func runInspect(cmd *cobra.Command, args []string) error {
	mods, err := loadModules(cmd.Context(), args, cfg)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for i, m := range mods {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s", m.Path, dimColor.Sprintf("(%s", humanize.IBytes(uint64(len(m.Input)))))
		if m.Cached {
			fmt.Fprint(w, dimColor.Sprint(", cached"))
		}
		fmt.Fprintln(w, dimColor.Sprint(")"))
		if m.Promoted > 0 {
			fmt.Fprintf(w, "%s\n", noteColor.Sprintf("%d local variable(s) promoted", m.Promoted))
		}
		if m.AtomicFixes > 0 {
			fmt.Fprintf(w, "%s\n", noteColor.Sprintf("%d compare-exchange instruction(s) patched", m.AtomicFixes))
		}
		if len(m.Kernels) == 0 {
			fmt.Fprintln(w, "no kernels")
			continue
		}
		for _, km := range m.Kernels {
			printKernel(w, km)
		}
	}
	return nil
}

func writeOutput(cmd *cobra.Command, data []byte) error {
	out, _ := cmd.Flags().GetString("output")
	if out == "" || out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
