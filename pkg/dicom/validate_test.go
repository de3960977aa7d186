package dicom

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/transfer"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/vr"
)

func TestValidateWellFormedFile(t *testing.T) {
	le := binary.LittleEndian
	data := newFileBuilder().
		fileMeta(transfer.ExplicitVRLittleEndian).
		str(le, tag.SOPInstanceUID, vr.UI, "1.2.3.4").
		str(le, tag.StudyInstanceUID, vr.UI, "1.2.3").
		str(le, tag.Modality, vr.CS, "CT").
		imagePixelModule(le, 2, 2, 16, false, Monochrome2).
		nativePixelData(le, samples16LE(make([]uint16, 4))).
		bytes()

	r := ValidateBytes(data)
	assert.True(t, r.IsValid)
	assert.Empty(t, r.Issues)
}

func TestValidateReportsMissingIdentity(t *testing.T) {
	data := grayFile16(2, 2, make([]uint16, 4))
	r := ValidateBytes(data)

	// Structurally fine, but SOPInstanceUID and StudyInstanceUID are
	// absent (grayFile16 only writes Modality).
	assert.True(t, r.IsValid)
	require.NotEmpty(t, r.Issues)
	assert.Contains(t, r.Issues[0], "SOPInstanceUID")
}

func TestValidateRejectsGarbage(t *testing.T) {
	r := ValidateBytes([]byte("short"))
	assert.False(t, r.IsValid)
	require.NotEmpty(t, r.Issues)
	assert.Contains(t, r.Issues[0], "too small")
}

func TestValidateReportsShortPixelData(t *testing.T) {
	le := binary.LittleEndian
	data := newFileBuilder().
		fileMeta(transfer.ExplicitVRLittleEndian).
		str(le, tag.SOPInstanceUID, vr.UI, "1.2.3.4").
		str(le, tag.StudyInstanceUID, vr.UI, "1.2.3").
		str(le, tag.Modality, vr.CS, "CT").
		imagePixelModule(le, 100, 100, 16, false, Monochrome2).
		nativePixelData(le, make([]byte, 64)). // expects 20000
		bytes()

	r := ValidateBytes(data)
	assert.True(t, r.IsValid)
	require.NotEmpty(t, r.Issues)
	assert.Contains(t, r.Issues[0], "64 bytes")
}

func TestValidateReportsMissingPixelData(t *testing.T) {
	le := binary.LittleEndian
	data := newFileBuilder().
		fileMeta(transfer.ExplicitVRLittleEndian).
		str(le, tag.SOPInstanceUID, vr.UI, "1.2.3.4").
		str(le, tag.StudyInstanceUID, vr.UI, "1.2.3").
		str(le, tag.Modality, vr.CS, "CT").
		bytes()

	r := ValidateBytes(data)
	assert.True(t, r.IsValid)
	require.NotEmpty(t, r.Issues)
	assert.Contains(t, r.Issues[0], "no pixel data")
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.dcm")
	require.NoError(t, os.WriteFile(path, grayFile16(2, 2, make([]uint16, 4)), 0644))

	r := ValidateFile(path)
	assert.True(t, r.IsValid)

	r = ValidateFile(filepath.Join(dir, "missing.dcm"))
	assert.False(t, r.IsValid)
	require.NotEmpty(t, r.Issues)
}
