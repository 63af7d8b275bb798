package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/wippyai/spvkernel/metadata"
)

var (
	kernelColor = color.New(color.FgGreen, color.Bold)
	argColor    = color.New(color.FgCyan)
	typeColor   = color.New(color.FgBlue)
	noteColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed, color.Bold)
	dimColor    = color.New(color.Faint)
)

func typeQualString(q metadata.TypeQualifier) string {
	var parts []string
	for _, f := range []struct {
		bit  metadata.TypeQualifier
		name string
	}{
		{metadata.TypeQualConst, "const"},
		{metadata.TypeQualRestrict, "restrict"},
		{metadata.TypeQualVolatile, "volatile"},
		{metadata.TypeQualPipe, "pipe"},
	} {
		if q&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, " ")
}

func formatArg(a metadata.ArgInfo) string {
	name := a.Name
	if name == "" {
		name = "_"
	}
	var b strings.Builder
	b.WriteString(argColor.Sprint(name))
	b.WriteString(": ")
	if q := typeQualString(a.TypeQual); q != "" {
		b.WriteString(q + " ")
	}
	if a.Type == metadata.ArgPointer {
		b.WriteString(a.Address.String() + " ")
	}
	typeName := a.TypeName
	if typeName == "" {
		typeName = a.Type.String()
	}
	b.WriteString(typeColor.Sprint(typeName))
	if a.Type == metadata.ArgPointer {
		b.WriteString("*")
	}
	if a.Type == metadata.ArgImage {
		b.WriteString(" " + a.Access.String())
	}
	fmt.Fprintf(&b, " %s", dimColor.Sprintf("(%s, align %d", humanize.IBytes(a.Size), a.Alignment))
	if a.Packed {
		b.WriteString(dimColor.Sprint(", packed"))
	}
	b.WriteString(dimColor.Sprint(")"))
	return b.String()
}

func printKernel(w io.Writer, km *metadata.KernelMetadata) {
	dev, ok := km.Device(0)
	if !ok {
		fmt.Fprintf(w, "%s (no device slots)\n", kernelColor.Sprint(km.Name))
		return
	}
	fmt.Fprintf(w, "%s", kernelColor.Sprint(km.Name))
	if len(km.Devices) > 1 {
		fmt.Fprintf(w, " %s", dimColor.Sprintf("[%d devices]", len(km.Devices)))
	}
	fmt.Fprintln(w)
	for i, a := range dev.Args {
		fmt.Fprintf(w, "  %2d %s\n", i, formatArg(a))
	}
	if !km.HasArgMetadata && dev.NumArgs > 0 {
		fmt.Fprintf(w, "     %s\n", noteColor.Sprint("argument names incomplete"))
	}
	if dev.NumLocals > 0 {
		sizes := make([]string, len(dev.LocalSizes))
		for i, s := range dev.LocalSizes {
			sizes[i] = humanize.IBytes(s)
		}
		fmt.Fprintf(w, "     local memory %s (%s)\n",
			noteColor.Sprint(humanize.IBytes(dev.LocalMemSize())), strings.Join(sizes, ", "))
	}
	if dev.ReqdWGSize != [3]uint64{} {
		fmt.Fprintf(w, "     reqd_work_group_size %v\n", dev.ReqdWGSize)
	}
	if dev.WGSizeHint != [3]uint64{} {
		fmt.Fprintf(w, "     work_group_size_hint %v\n", dev.WGSizeHint)
	}
	if dev.VecTypeHint != [3]uint64{} {
		fmt.Fprintf(w, "     vec_type_hint %v\n", dev.VecTypeHint)
	}
}
