// Package dicom decodes DICOM files into typed pixel buffers.
package dicom

import (
	"errors"
	"fmt"
)

// Kind classifies a decode failure. The class drives both severity and the
// recovery suggestion surfaced to callers.
type Kind int

const (
	KindUnknown Kind = iota

	// File-level: recoverable, reportable, never fatal to the process.
	KindFileNotFound
	KindFileReadError
	KindFileWrongFormat
	KindFileCorrupted

	// DICOM-structural: decode of this file aborts; batch siblings continue.
	KindInvalidFormat
	KindMissingRequiredTag
	KindUnsupportedTransferSyntax
	KindInvalidPixelData

	// Medical-semantic: warnings that do not block pixel decode.
	KindInvalidWindowLevel
	KindInvalidPatientField
	KindMissingStudyInfo
	KindInvalidModality

	// System: surfaced as critical.
	KindMemoryAllocation
	KindImageProcessing
)

// Severity buckets for a Kind.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityRecoverable
	SeverityCritical
)

// Severity returns the severity bucket for the kind.
func (k Kind) Severity() Severity {
	switch k {
	case KindInvalidWindowLevel, KindInvalidPatientField, KindMissingStudyInfo, KindInvalidModality:
		return SeverityWarning
	case KindMemoryAllocation, KindImageProcessing, KindUnknown:
		return SeverityCritical
	default:
		return SeverityRecoverable
	}
}

func (k Kind) String() string {
	switch k {
	case KindFileNotFound:
		return "file-not-found"
	case KindFileReadError:
		return "file-read-error"
	case KindFileWrongFormat:
		return "file-wrong-format"
	case KindFileCorrupted:
		return "file-corrupted"
	case KindInvalidFormat:
		return "invalid-format"
	case KindMissingRequiredTag:
		return "missing-required-tag"
	case KindUnsupportedTransferSyntax:
		return "unsupported-transfer-syntax"
	case KindInvalidPixelData:
		return "invalid-pixel-data"
	case KindInvalidWindowLevel:
		return "invalid-window-level"
	case KindInvalidPatientField:
		return "invalid-patient-field"
	case KindMissingStudyInfo:
		return "missing-study-info"
	case KindInvalidModality:
		return "invalid-modality"
	case KindMemoryAllocation:
		return "memory-allocation"
	case KindImageProcessing:
		return "image-processing"
	default:
		return "unknown"
	}
}

// Error is a typed decode failure carrying a description and an actionable
// recovery suggestion. Expected failure modes (missing file, bad format)
// are returned as values; callers never have to unwind through panics.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dicom: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("dicom: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Suggestion returns a human-readable recovery hint for the failure.
func (e *Error) Suggestion() string {
	switch e.Kind {
	case KindFileNotFound:
		return "Verify the file path exists and is readable."
	case KindFileReadError:
		return "Check file permissions and that the volume is mounted."
	case KindFileWrongFormat:
		return "The file does not look like DICOM; confirm the source exported Part 10 files."
	case KindFileCorrupted:
		return "Re-export or re-transfer the file; the byte stream is truncated or damaged."
	case KindInvalidFormat:
		return "The element stream is malformed; try re-exporting from the source system."
	case KindMissingRequiredTag:
		return "A required tag is absent; confirm the file carries a complete Image Pixel module."
	case KindUnsupportedTransferSyntax:
		return "Transcode the file to Explicit VR Little Endian or JPEG Lossless before decoding."
	case KindInvalidPixelData:
		return "The pixel stream is inconsistent with its descriptor; the file may be lossy-damaged."
	case KindInvalidWindowLevel:
		return "Window width must be positive; falling back to a computed window is safe."
	case KindMemoryAllocation:
		return "Reduce concurrent decodes or call Pool.ReleaseHalf to relieve memory pressure."
	case KindImageProcessing:
		return "Retry the operation; if it persists, capture the file for a decoder bug report."
	default:
		return "Inspect the wrapped error for details."
	}
}

// newError builds a typed error without a cause.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// wrapError builds a typed error around a cause.
func wrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
