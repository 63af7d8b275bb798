package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/spvkernel/spirv"
)

var workaroundCmd = &cobra.Command{
	Use:   "workaround [flags] file.spv -o out.spv",
	Short: "Patch mistyped atomic compare-exchange instructions",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkaround,
}

func init() {
	workaroundCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runWorkaround(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	words, err := spirv.WordsFromBytes(data)
	if err != nil {
		return err
	}
	patched, fixes, err := spirv.PatchAtomicCmpXchg(words)
	if err != nil {
		return err
	}
	log := cmd.ErrOrStderr()
	for _, f := range fixes {
		var what []string
		if f.WasWeak {
			what = append(what, "weak opcode")
		}
		if f.TypeFixed {
			what = append(what, fmt.Sprintf("result type %%%d -> %%%d", f.OldType, f.NewType))
		}
		fmt.Fprintf(log, "%%%d at word %d: %s\n", f.Result, f.Offset, strings.Join(what, ", "))
	}
	if len(fixes) == 0 {
		fmt.Fprintln(log, dimColor.Sprint("nothing to patch"))
	}
	return writeOutput(cmd, spirv.WordsToBytes(patched))
}
