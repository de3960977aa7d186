package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
	"github.com/ThalesMMS/dicom-decoder/pkg/imaging"
)

// NewAnalyzeCmd creates the analyze cobra command
func NewAnalyzeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze DICOM file structure",
		Long:  "Parses and displays detailed information about a DICOM file including metadata, pixel layout and sample statistics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}
			if filePath == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}
			dumpRaw, _ := cmd.Flags().GetString("dump-raw")
			dumpTags, _ := cmd.Flags().GetBool("dump-tags")
			return runAnalyze(filePath, dumpRaw, dumpTags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file path to analyze")
	pf.String("dump-raw", "", "Write decoded samples (little endian) to this path")
	pf.Bool("dump-tags", false, "Print every parsed element in stream order")
	return cmd
}

func runAnalyze(filePath, dumpRaw string, dumpTags bool) error {
	dec := dicom.NewDecoder(nil)
	if err := dec.Load(filePath); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	defer dec.Close()

	ds := dec.Dataset()

	fmt.Println("=== Metadata ===")
	for _, label := range []struct {
		name string
		t    tag.Tag
	}{
		{"SOPClassUID", tag.SOPClassUID},
		{"SOPInstanceUID", tag.SOPInstanceUID},
		{"Modality", tag.Modality},
		{"StudyDescription", tag.StudyDescription},
		{"PatientID", tag.PatientID},
	} {
		if v := ds.String(label.t); v != "" {
			fmt.Printf("%s: %s\n", label.name, v)
		}
	}

	fmt.Printf("TransferSyntax: %s (%s)\n", ds.Syntax, ds.Syntax.Name())
	fmt.Printf("Encapsulated: %v\n", ds.PixelInfo.IsEncapsulated)
	if row, col, ok := dec.PixelSpacing(); ok {
		fmt.Printf("PixelSpacing: %.4gmm x %.4gmm\n", row, col)
	}
	for _, w := range ds.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	if dumpTags {
		fmt.Println()
		fmt.Println("=== Elements ===")
		for _, t := range ds.Tags() {
			e, _ := ds.Get(t)
			v := e.String()
			if len(v) > 64 {
				v = v[:64] + "..."
			}
			fmt.Printf("%s %s len=%d %s\n", t, e.VR, e.Length, v)
		}
	}

	vs := dec.Validation()
	fmt.Println()
	fmt.Println("=== Pixel Data ===")
	fmt.Printf("Dimensions: %dx%d\n", vs.Width, vs.Height)
	fmt.Printf("BitsAllocated: %d\n", dec.BitsAllocated())
	fmt.Printf("SamplesPerPixel: %d\n", dec.SamplesPerPixel())
	if !vs.HasPixels {
		fmt.Println("No decodable pixel data")
		return nil
	}

	if p16 := dec.Pixels16(); p16 != nil {
		h := imaging.ComputeHistogram(p16)
		fmt.Printf("Sample range: min=%d, max=%d, mean=%.1f\n", h.Min, h.Max, h.Mean)
		c, w := imaging.OptimalWindow(p16)
		fmt.Printf("Suggested window: center=%.0f width=%.0f\n", c, w)
		if slope, ok := dec.FloatValue(0x0028, 0x1053); ok {
			intercept, _ := dec.FloatValue(0x0028, 0x1052)
			fmt.Printf("HU at mean: %.1f\n", imaging.PixelToHU(h.Mean, slope, intercept))
		}
		if dumpRaw != "" {
			raw := make([]byte, len(p16)*2)
			for i, v := range p16 {
				raw[i*2] = byte(v)
				raw[i*2+1] = byte(v >> 8)
			}
			fmt.Printf("Dumping %d bytes to %s\n", len(raw), dumpRaw)
			return os.WriteFile(dumpRaw, raw, 0644)
		}
		return nil
	}

	var flat []uint8
	if p8 := dec.Pixels8(); p8 != nil {
		flat = p8
	} else {
		flat = dec.PixelsRGB8()
	}
	minV, maxV := flat[0], flat[0]
	for _, v := range flat {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	fmt.Printf("Sample range: min=%d, max=%d\n", minV, maxV)
	if dumpRaw != "" {
		fmt.Printf("Dumping %d bytes to %s\n", len(flat), dumpRaw)
		return os.WriteFile(dumpRaw, flat, 0644)
	}
	return nil
}
