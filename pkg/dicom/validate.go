package dicom

import (
	"fmt"
	"os"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
)

// ValidationReport is the outcome of a structural pre-check. Issues are
// human-readable and ordered from most to least severe.
type ValidationReport struct {
	IsValid bool
	Issues  []string
}

// ValidateFile runs the structural pre-check against a file on disk.
func ValidateFile(path string) ValidationReport {
	if _, err := os.Stat(path); err != nil {
		return ValidationReport{Issues: []string{fmt.Sprintf("cannot access file: %v", err)}}
	}
	src, closer, err := Open(path)
	if err != nil {
		return ValidationReport{Issues: []string{fmt.Sprintf("cannot open file: %v", err)}}
	}
	defer closer()
	return ValidateSource(src)
}

// ValidateBytes runs the pre-check against an in-memory file image.
func ValidateBytes(data []byte) ValidationReport {
	return ValidateSource(NewBytesSource(data))
}

// ValidateSource parses the tag stream and reports structural problems
// without touching pixel bytes. Intended to short-circuit obviously
// malformed input before a full decode is attempted.
func ValidateSource(src Source) ValidationReport {
	var r ValidationReport

	ds, err := Parse(src)
	if err != nil {
		r.Issues = append(r.Issues, err.Error())
		if e, ok := err.(*Error); ok && e.Suggestion() != "" {
			r.Issues = append(r.Issues, e.Suggestion())
		}
		return r
	}

	r.IsValid = true

	if !ds.PixelInfo.Present {
		r.Issues = append(r.Issues, "no pixel data element (7FE0,0010)")
	} else if desc, err := DescriptorFrom(ds); err != nil {
		r.Issues = append(r.Issues, fmt.Sprintf("pixel descriptor: %v", err))
	} else if !ds.PixelInfo.IsEncapsulated && ds.PixelInfo.Length < desc.ExpectedBytes() {
		r.Issues = append(r.Issues, fmt.Sprintf(
			"pixel data holds %d bytes, descriptor expects %d", ds.PixelInfo.Length, desc.ExpectedBytes()))
	}

	if ds.PixelInfo.IsEncapsulated && !ds.Syntax.IsDecodable() {
		r.Issues = append(r.Issues, fmt.Sprintf("pixel data compressed with undecodable syntax %s", ds.Syntax.Name()))
	}

	// Identity tags are advisory: their absence degrades reporting, not
	// pixel decode.
	for _, t := range []tag.Tag{tag.SOPInstanceUID, tag.StudyInstanceUID, tag.Modality} {
		if !ds.Has(t) {
			r.Issues = append(r.Issues, fmt.Sprintf("missing %s", t.LookupName()))
		}
	}

	r.Issues = append(r.Issues, ds.Warnings...)
	return r
}
