package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseHeader     Phase = "header"     // module header validation
	PhaseDecode     Phase = "decode"     // instruction stream scan
	PhaseResolve    Phase = "resolve"    // deferred type/decoration resolution
	PhaseRewrite    Phase = "rewrite"    // automatic local promotion
	PhaseAdapt      Phase = "adapt"      // signature to runtime metadata
	PhaseWorkaround Phase = "workaround" // producer bug workarounds
	PhaseMap        Phase = "map"        // descriptor map parsing
	PhaseCache      Phase = "cache"      // metadata cache
	PhaseLaunch     Phase = "launch"     // launch-time checks
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedHeader             Kind = "malformed_header"
	KindTruncatedStream             Kind = "truncated_stream"
	KindMalformedBinary             Kind = "malformed_binary"
	KindUnsupportedDynamicLocalSize Kind = "unsupported_dynamic_local_size"
	KindDuplicateKernelName         Kind = "duplicate_kernel_name"
	KindOutOfBounds                 Kind = "out_of_bounds"
	KindUnsupported                 Kind = "unsupported"
	KindInvalidInput                Kind = "invalid_input"
	KindNotFound                    Kind = "not_found"
)

// Sentinels that match any error of the given kind regardless of phase.
var (
	ErrMalformedHeader             = &Error{Kind: KindMalformedHeader}
	ErrTruncatedStream             = &Error{Kind: KindTruncatedStream}
	ErrMalformedBinary             = &Error{Kind: KindMalformedBinary}
	ErrUnsupportedDynamicLocalSize = &Error{Kind: KindUnsupportedDynamicLocalSize}
	ErrDuplicateKernelName         = &Error{Kind: KindDuplicateKernelName}
	ErrOutOfBounds                 = &Error{Kind: KindOutOfBounds}
	ErrUnsupported                 = &Error{Kind: KindUnsupported}
	ErrInvalidInput                = &Error{Kind: KindInvalidInput}
	ErrNotFound                    = &Error{Kind: KindNotFound}
)

// Error is the structured error type used throughout the front end
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Kernel string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Kernel != "" {
		b.WriteString(" in kernel ")
		b.WriteString(e.Kernel)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path (kernel, argument, id)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Kernel sets the kernel the error relates to
func (b *Builder) Kernel(name string) *Builder {
	b.err.Kernel = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MalformedHeader creates a header validation error
func MalformedHeader(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseHeader,
		Kind:   KindMalformedHeader,
		Detail: detail,
		Cause:  cause,
	}
}

// TruncatedStream creates an error for an instruction that runs past the end
// of the stream. need and have are word counts.
func TruncatedStream(phase Phase, offset, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncatedStream,
		Detail: fmt.Sprintf("instruction at word %d needs %d words, %d remain", offset, need, have),
		Value:  offset,
	}
}

// MalformedBinary creates an error for structurally invalid input
func MalformedBinary(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedBinary,
		Detail: detail,
	}
}

// UnresolvedID creates a malformed binary error for a dangling identifier
func UnresolvedID(phase Phase, kernel, what string, id uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedBinary,
		Kernel: kernel,
		Detail: fmt.Sprintf("unresolved %s %%%d", what, id),
		Value:  id,
	}
}

// DuplicateKernelName creates an error for a kernel name declared twice
func DuplicateKernelName(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicateKernelName,
		Kernel: name,
		Detail: fmt.Sprintf("kernel %q declared more than once", name),
		Value:  name,
	}
}

// UnsupportedDynamicLocalSize creates an error for a local allocation whose
// extent is not a compile-time constant
func UnsupportedDynamicLocalSize(kernel string, id uint32, detail string) *Error {
	return &Error{
		Phase:  PhaseRewrite,
		Kind:   KindUnsupportedDynamicLocalSize,
		Kernel: kernel,
		Path:   []string{fmt.Sprintf("%%%d", id)},
		Detail: detail,
		Value:  id,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// KindOf returns the kind of the first structured error in err's chain.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}
