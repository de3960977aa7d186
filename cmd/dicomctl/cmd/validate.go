package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom"
)

// NewValidateCmd creates the validate cobra command
func NewValidateCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Structural pre-check of DICOM files",
		Long:  "Parses the tag stream and reports structural issues without decoding pixel data. Exits non-zero when any file fails the pre-check.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				r := dicom.ValidateFile(path)
				status := "ok"
				if !r.IsValid {
					status = "INVALID"
					failed++
				}
				fmt.Printf("%s: %s\n", path, status)
				for _, issue := range r.Issues {
					fmt.Printf("  - %s\n", issue)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
	return cmd
}
