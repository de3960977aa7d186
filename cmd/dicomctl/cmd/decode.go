package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
	"github.com/ThalesMMS/dicom-decoder/pkg/imaging"
)

// NewDecodeCmd creates the decode cobra command
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "DICOM decode",
		Long:  "Decodes a DICOM file from a path, URL or stdin and emits metadata as JSON or text, optionally with window/level mapped display bytes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			uri = strings.TrimPrefix(uri, "file://")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}

			dec := dicom.NewDecoder(nil)
			var err error
			switch {
			case uri == "-":
				var data []byte
				if data, err = io.ReadAll(os.Stdin); err == nil {
					err = dec.LoadBytes(data)
				}
			case strings.HasPrefix(uri, "http"):
				err = dec.LoadURL(ctx, uri)
			default:
				err = dec.Load(uri)
			}
			if err != nil {
				return fmt.Errorf("decode failed: %w", err)
			}
			defer dec.Close()

			if outPath, _ := cmd.Flags().GetString("display"); outPath != "" {
				return writeDisplay(cmd, dec, outPath)
			}

			switch format, _ := cmd.Flags().GetString("format"); format {
			case "text":
				printText(dec)
			default:
				j, _ := json.Marshal(summarize(dec))
				os.Stdout.Write(j)
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "DICOM path, URL, or - for stdin")
	pf.StringP("format", "f", "json", "output format (text|json)")
	pf.String("display", "", "write window/level mapped display bytes to this path")
	pf.Float64("center", 0, "window center (0 = derive from samples)")
	pf.Float64("width", 0, "window width (0 = derive from samples)")
	return cmd
}

type summary struct {
	Valid           bool     `json:"valid"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	BitsAllocated   int      `json:"bitsAllocated"`
	SamplesPerPixel int      `json:"samplesPerPixel"`
	Compressed      bool     `json:"compressed"`
	TransferSyntax  string   `json:"transferSyntax"`
	Modality        string   `json:"modality,omitempty"`
	SOPInstanceUID  string   `json:"sopInstanceUID,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

func summarize(dec *dicom.Decoder) summary {
	vs := dec.Validation()
	ds := dec.Dataset()
	return summary{
		Valid:           vs.IsValid,
		Width:           vs.Width,
		Height:          vs.Height,
		BitsAllocated:   dec.BitsAllocated(),
		SamplesPerPixel: dec.SamplesPerPixel(),
		Compressed:      vs.IsCompressed,
		TransferSyntax:  string(ds.Syntax),
		Modality:        ds.String(tag.Modality),
		SOPInstanceUID:  ds.String(tag.SOPInstanceUID),
		Warnings:        ds.Warnings,
	}
}

func printText(dec *dicom.Decoder) {
	s := summarize(dec)
	fmt.Printf("valid: %v\n", s.Valid)
	fmt.Printf("dimensions: %dx%d\n", s.Width, s.Height)
	fmt.Printf("bits allocated: %d\n", s.BitsAllocated)
	fmt.Printf("samples/pixel: %d\n", s.SamplesPerPixel)
	fmt.Printf("transfer syntax: %s\n", s.TransferSyntax)
	if s.Modality != "" {
		fmt.Printf("modality: %s\n", s.Modality)
	}
	for _, w := range s.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}

// writeDisplay maps the loaded 16-bit samples through the contrast engine
// and writes the resulting display bytes.
func writeDisplay(cmd *cobra.Command, dec *dicom.Decoder, outPath string) error {
	samples := dec.Pixels16()
	if samples == nil {
		return fmt.Errorf("display mapping needs 16-bit grayscale pixel data")
	}

	center, _ := cmd.Flags().GetFloat64("center")
	width, _ := cmd.Flags().GetFloat64("width")
	if width <= 0 {
		// Stored VOI window first, sample statistics as the fallback.
		c, okC := dec.FloatValue(tag.WindowCenter.Group, tag.WindowCenter.Element)
		w, okW := dec.FloatValue(tag.WindowWidth.Group, tag.WindowWidth.Element)
		if okC && okW && w > 0 {
			center, width = c, w
		} else {
			center, width = imaging.OptimalWindow(samples)
		}
	}

	display := imaging.ApplyWindowLevel(samples, center, width, imaging.BackendAuto)
	if display == nil {
		return fmt.Errorf("window/level mapping failed (center=%v width=%v)", center, width)
	}
	fmt.Printf("writing %d display bytes (center=%.0f width=%.0f) to %s\n", len(display), center, width, outPath)
	return os.WriteFile(outPath, display, 0644)
}
