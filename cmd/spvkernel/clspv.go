package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/spvkernel/clspvmap"
)

var clspvMapCmd = &cobra.Command{
	Use:   "clspv-map [flags] file.map",
	Short: "Print kernel metadata from a clspv descriptor map",
	Args:  cobra.ExactArgs(1),
	RunE:  runClspvMap,
}

func init() {
	clspvMapCmd.Flags().Bool("bindings", false, "also print descriptor set bindings")
}

func runClspvMap(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	defer f.Close()

	m, err := clspvmap.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	kms, err := m.ToMetadata(cfg.Devices)
	if err != nil {
		return err
	}
	bindings, _ := cmd.Flags().GetBool("bindings")

	w := cmd.OutOrStdout()
	if n := m.NumWorkgroupSpecConstants(); n > 0 {
		fmt.Fprintf(w, "%s %v\n", dimColor.Sprint("workgroup size spec ids"), m.WorkgroupSpecIDs)
	}
	for i, km := range kms {
		printKernel(w, km)
		if !bindings {
			continue
		}
		for _, a := range m.Kernels[i].Args {
			if a.Kind == clspvmap.ArgLocal {
				fmt.Fprintf(w, "     %s %s spec id %d, element %d bytes\n",
					argColor.Sprint(a.Name), a.Kind, a.SpecID, a.ElemSize)
				continue
			}
			fmt.Fprintf(w, "     %s %s set %d binding %d offset %d\n",
				argColor.Sprint(a.Name), a.Kind, a.DescriptorSet, a.Binding, a.Offset)
		}
	}
	return nil
}
