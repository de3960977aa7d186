// Package tag defines DICOM data element tags.
package tag

import "fmt"

// Tag identifies a DICOM data element by (group, element).
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag.
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// Equals compares two tags.
func (t Tag) Equals(other Tag) bool {
	return t.Group == other.Group && t.Element == other.Element
}

// Less orders tags by group, then element. The DICOM stream is customarily
// ascending in this order.
func (t Tag) Less(other Tag) bool {
	if t.Group != other.Group {
		return t.Group < other.Group
	}
	return t.Element < other.Element
}

// IsPrivate returns true for private tags (odd group number).
func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

// IsFileMeta returns true if this tag is in the File Meta Information group.
func (t Tag) IsFileMeta() bool {
	return t.Group == 0x0002
}

// String renders the tag in the conventional (GGGG,EEEE) form.
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
	ImplementationVersionName      = Tag{0x0002, 0x0013}
)

// SOP Common Module
var (
	SOPClassUID          = Tag{0x0008, 0x0016}
	SOPInstanceUID       = Tag{0x0008, 0x0018}
	SpecificCharacterSet = Tag{0x0008, 0x0005}
	InstanceCreationDate = Tag{0x0008, 0x0012}
	InstanceCreationTime = Tag{0x0008, 0x0013}
)

// Study / Series
var (
	Modality          = Tag{0x0008, 0x0060}
	StudyDate         = Tag{0x0008, 0x0020}
	StudyTime         = Tag{0x0008, 0x0030}
	StudyDescription  = Tag{0x0008, 0x1030}
	SeriesDescription = Tag{0x0008, 0x103E}
	StudyInstanceUID  = Tag{0x0020, 0x000D}
	SeriesInstanceUID = Tag{0x0020, 0x000E}
	SeriesNumber      = Tag{0x0020, 0x0011}
	InstanceNumber    = Tag{0x0020, 0x0013}
	PatientName       = Tag{0x0010, 0x0010}
	PatientID         = Tag{0x0010, 0x0020}
)

// Image Pixel Module (Group 0028)
var (
	SamplesPerPixel           = Tag{0x0028, 0x0002}
	PhotometricInterpretation = Tag{0x0028, 0x0004}
	PlanarConfiguration       = Tag{0x0028, 0x0006}
	NumberOfFrames            = Tag{0x0028, 0x0008}
	Rows                      = Tag{0x0028, 0x0010}
	Columns                   = Tag{0x0028, 0x0011}
	PixelSpacing              = Tag{0x0028, 0x0030}
	BitsAllocated             = Tag{0x0028, 0x0100}
	BitsStored                = Tag{0x0028, 0x0101}
	HighBit                   = Tag{0x0028, 0x0102}
	PixelRepresentation       = Tag{0x0028, 0x0103}
	SmallestImagePixelValue   = Tag{0x0028, 0x0106}
	LargestImagePixelValue    = Tag{0x0028, 0x0107}
	PixelPaddingValue         = Tag{0x0028, 0x0120}
	PixelData                 = Tag{0x7FE0, 0x0010}
)

// VOI LUT / Modality LUT
var (
	WindowCenter                 = Tag{0x0028, 0x1050}
	WindowWidth                  = Tag{0x0028, 0x1051}
	RescaleIntercept             = Tag{0x0028, 0x1052}
	RescaleSlope                 = Tag{0x0028, 0x1053}
	RescaleType                  = Tag{0x0028, 0x1054}
	WindowCenterWidthExplanation = Tag{0x0028, 0x1055}
	VOILUTFunction               = Tag{0x0028, 0x1056}
	LossyImageCompression        = Tag{0x0028, 0x2110}
)

// Geometry
var (
	ImagePositionPatient    = Tag{0x0020, 0x0032}
	ImageOrientationPatient = Tag{0x0020, 0x0037}
	SliceThickness          = Tag{0x0018, 0x0050}
	SliceLocation           = Tag{0x0020, 0x1041}
)

// Sequence delimiters (Group FFFE). These carry no VR on the wire.
var (
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// LookupName returns a human-readable name for tags the decoder reports on.
func (t Tag) LookupName() string {
	switch t {
	case TransferSyntaxUID:
		return "TransferSyntaxUID"
	case SOPClassUID:
		return "SOPClassUID"
	case SOPInstanceUID:
		return "SOPInstanceUID"
	case Modality:
		return "Modality"
	case Rows:
		return "Rows"
	case Columns:
		return "Columns"
	case BitsAllocated:
		return "BitsAllocated"
	case BitsStored:
		return "BitsStored"
	case SamplesPerPixel:
		return "SamplesPerPixel"
	case PhotometricInterpretation:
		return "PhotometricInterpretation"
	case PixelRepresentation:
		return "PixelRepresentation"
	case NumberOfFrames:
		return "NumberOfFrames"
	case PixelData:
		return "PixelData"
	case WindowCenter:
		return "WindowCenter"
	case WindowWidth:
		return "WindowWidth"
	case RescaleIntercept:
		return "RescaleIntercept"
	case RescaleSlope:
		return "RescaleSlope"
	default:
		return ""
	}
}
