// Package xerrors implements an error taxonomy of FormatError,
// ValidationError, ResourceError and UsageError, plus the tri-valued
// Stringency policy that governs how ValidationError is surfaced.
//
// Wrapping follows the same "annotate with context, keep the cause"
// idiom bam/reader.go achieves ad hoc with fmt.Errorf("%s: ...", typ,
// err); here it is done with github.com/pkg/errors so callers can
// still recover the original cause through each type's Unwrap method,
// with errors.Unwrap or errors.As.
package xerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stringency selects how a ValidationError is handled once raised.
type Stringency int

const (
	// Strict raises ValidationError to the caller.
	Strict Stringency = iota
	// Lenient emits the ValidationError to a diagnostic sink and
	// continues processing.
	Lenient
	// Silent drops the ValidationError entirely.
	Silent
)

func (s Stringency) String() string {
	switch s {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	case Silent:
		return "silent"
	default:
		return "unknown"
	}
}

// Sink receives ValidationErrors raised under Lenient stringency.
// When no Sink is supplied (nil), Raise drops the error.
type Sink interface {
	Report(err *ValidationError)
}

// FormatError indicates the byte stream itself is malformed: a magic
// mismatch, a truncated block, a declared length inconsistent with the
// bytes actually present, an unknown CIGAR opcode or attribute type.
// FormatError is always fatal.
type FormatError struct {
	Context string
	Cause   error
}

func (e *FormatError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("gsa: format error: %s", e.Context)
	}
	return fmt.Sprintf("gsa: format error: %s: %v", e.Context, e.Cause)
}

func (e *FormatError) Unwrap() error { return e.Cause }

// NewFormatError builds a FormatError, wrapping cause with context.
func NewFormatError(context string, cause error) *FormatError {
	return &FormatError{Context: context, Cause: errors.WithStack(cause)}
}

// ValidationKind distinguishes the specific semantic rule a record
// violated, so callers can filter the ones they care about.
type ValidationKind int

const (
	// KindCigarRule covers clipping placement, adjacency of I/D runs,
	// and other CIGAR structural constraints.
	KindCigarRule ValidationKind = iota
	// KindSentinelMismatch is a mismatch between a long-CIGAR
	// sentinel's implied lengths and the CG attribute's decoded
	// lengths.
	KindSentinelMismatch
	// KindMateFlags is an inconsistency between pairing flags and
	// mate reference/position fields.
	KindMateFlags
	// KindMapQRange is a mapq value outside 0..255.
	KindMapQRange
	// KindPastReferenceEnd is a mapped record whose alignment start
	// lies beyond the reference's declared length.
	KindPastReferenceEnd
)

func (k ValidationKind) String() string {
	switch k {
	case KindCigarRule:
		return "cigar-rule"
	case KindSentinelMismatch:
		return "sentinel-mismatch"
	case KindMateFlags:
		return "mate-flags"
	case KindMapQRange:
		return "mapq-range"
	case KindPastReferenceEnd:
		return "past-reference-end"
	default:
		return "unknown"
	}
}

// ValidationError indicates a record satisfies the binary layout but
// violates a semantic invariant. RecordName and RecordIndex locate the
// offending input so a caller can report which record to fix.
type ValidationError struct {
	Kind        ValidationKind
	RecordName  string
	RecordIndex int64
	Cause       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gsa: validation error (%s) on record %q (#%d): %v",
		e.Kind, e.RecordName, e.RecordIndex, e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// NewValidationError builds a ValidationError of the given kind,
// wrapping cause with context. recordIndex is -1 when the caller
// (e.g. the record codec, which has no notion of stream position)
// cannot supply one.
func NewValidationError(kind ValidationKind, recordName string, recordIndex int64, cause error) *ValidationError {
	return &ValidationError{Kind: kind, RecordName: recordName, RecordIndex: recordIndex, Cause: errors.WithStack(cause)}
}

// Raise applies stringency to a just-detected validation error: under
// Strict it is returned as an error; under Lenient it is reported to
// sink (or dropped if sink is nil) and Raise returns nil; under Silent
// it is dropped unconditionally.
func Raise(stringency Stringency, sink Sink, err *ValidationError) error {
	switch stringency {
	case Strict:
		return err
	case Lenient:
		if sink != nil {
			sink.Report(err)
		}
		return nil
	default: // Silent
		return nil
	}
}

// ResourceError indicates an I/O failure on the underlying
// compressed stream or index file. ResourceError is always fatal.
type ResourceError struct {
	Context string
	Cause   error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("gsa: resource error: %s: %v", e.Context, e.Cause)
}

func (e *ResourceError) Unwrap() error { return e.Cause }

// NewResourceError builds a ResourceError, wrapping cause with context.
func NewResourceError(context string, cause error) *ResourceError {
	return &ResourceError{Context: context, Cause: errors.WithStack(cause)}
}

// UsageError indicates the caller used the API incorrectly: records
// fed to the indexer out of order, an operation attempted on a
// read-only reader, an invalid (non-2-byte) tag name. UsageError is
// always fatal.
type UsageError struct {
	Context string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("gsa: usage error: %s", e.Context)
}

// NewUsageError builds a UsageError.
func NewUsageError(format string, args ...interface{}) *UsageError {
	return &UsageError{Context: fmt.Sprintf(format, args...)}
}
