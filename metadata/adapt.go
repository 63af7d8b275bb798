package metadata

import (
	"fmt"

	spverrors "github.com/wippyai/spvkernel/errors"
	"github.com/wippyai/spvkernel/signature"
)

// Map translates one kernel signature into metadata replicated across
// devices slots.
func Map(name string, sig *signature.FunctionSignature, devices int) (*KernelMetadata, error) {
	if devices < 1 {
		return nil, spverrors.New(spverrors.PhaseAdapt, spverrors.KindInvalidInput).
			Kernel(name).
			Value(devices).
			Detail("device count must be at least 1, got %d", devices).
			Build()
	}
	km := &KernelMetadata{Devices: make([]DeviceMetadata, devices)}
	if err := MapInto(km, name, sig); err != nil {
		return nil, err
	}
	return km, nil
}

// MapInto fills a record whose Devices slice the caller has already sized.
// Every slot receives an independent copy of the same metadata.
func MapInto(km *KernelMetadata, name string, sig *signature.FunctionSignature) error {
	if km == nil || len(km.Devices) == 0 {
		return spverrors.New(spverrors.PhaseAdapt, spverrors.KindInvalidInput).
			Kernel(name).
			Detail("metadata record has no device slots").
			Build()
	}
	if sig == nil {
		return spverrors.New(spverrors.PhaseAdapt, spverrors.KindInvalidInput).
			Kernel(name).
			Detail("nil signature").
			Build()
	}

	var dev DeviceMetadata
	named := 0
	for _, a := range sig.Args {
		if a.Local != nil {
			dev.LocalSizes = append(dev.LocalSizes, a.Local.Size)
			dev.LocalAlignments = append(dev.LocalAlignments, a.Local.Alignment)
			continue
		}
		dev.Args = append(dev.Args, argInfo(a))
		if a.Name != "" {
			named++
		}
	}
	dev.NumArgs = len(dev.Args)
	dev.NumLocals = len(dev.LocalSizes)
	dev.Return = argInfo(sig.Return)
	dev.ReqdWGSize = sig.ReqLocalSize
	dev.WGSizeHint = sig.LocalSizeHint
	dev.VecTypeHint = sig.VecTypeHint

	km.Name = name
	km.HasArgMetadata = dev.NumArgs > 0 && named == dev.NumArgs
	km.Devices[0] = dev
	for i := 1; i < len(km.Devices); i++ {
		km.Devices[i] = dev.clone()
	}
	return nil
}

// MapAll maps every kernel in infos, in the map's iteration order.
func MapAll(infos *signature.FunctionInfoMap, devices int) ([]*KernelMetadata, error) {
	out := make([]*KernelMetadata, 0, infos.Len())
	err := infos.Walk(func(name string, sig *signature.FunctionSignature) error {
		km, err := Map(name, sig, devices)
		if err != nil {
			return err
		}
		out = append(out, km)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func argInfo(a signature.ArgTypeInfo) ArgInfo {
	info := ArgInfo{
		Name:      a.Name,
		TypeName:  a.TypeName,
		Size:      a.Size,
		Alignment: a.Alignment,
		Address:   addressOf(a.Space),
		Access:    AccessNone,
		Packed:    a.Attrs.Has(signature.AttrPacked),
	}
	switch a.Kind {
	case signature.KindPointer:
		info.Type = ArgPointer
	case signature.KindImage:
		info.Type = ArgImage
		info.Access = imageAccess(a.Attrs)
	case signature.KindSampler:
		info.Type = ArgSampler
	}

	if a.Attrs.Has(signature.AttrConstant) || (a.Kind == signature.KindPointer && a.Space == signature.SpaceConstant) {
		info.TypeQual |= TypeQualConst
	}
	if a.Attrs.Has(signature.AttrRestrict) {
		info.TypeQual |= TypeQualRestrict
	}
	if a.Attrs.Has(signature.AttrVolatile) {
		info.TypeQual |= TypeQualVolatile
	}
	if a.Attrs.Has(signature.AttrPipe) {
		info.TypeQual |= TypeQualPipe
	}
	return info
}

func imageAccess(a signature.Attrs) AccessQualifier {
	r := a.Has(signature.AttrReadableImage)
	w := a.Has(signature.AttrWriteableImage)
	switch {
	case r && w:
		return AccessReadWrite
	case w:
		return AccessWriteOnly
	}
	return AccessReadOnly
}

// CheckLocalSize validates a launch's work-group size against the kernel's
// required size, if it declares one.
func (d *DeviceMetadata) CheckLocalSize(local [3]uint64) error {
	for i, n := range local {
		if n == 0 {
			return spverrors.New(spverrors.PhaseLaunch, spverrors.KindInvalidInput).
				Path(fmt.Sprintf("dim%d", i)).
				Detail("work-group size %v has a zero dimension", local).
				Build()
		}
	}
	if d.ReqdWGSize == ([3]uint64{}) || d.ReqdWGSize == local {
		return nil
	}
	return spverrors.New(spverrors.PhaseLaunch, spverrors.KindInvalidInput).
		Value(local).
		Detail("work-group size %v does not match required size %v", local, d.ReqdWGSize).
		Build()
}
