package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/capture"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/vision"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>...",
	Short: "Print the detection, pose and quality analysis of still images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analyzer := vision.NewDefaultAnalyzer()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		for _, path := range args {
			img, err := capture.DecodeImageFile(path)
			if err != nil {
				return err
			}
			frame, err := vision.NewFrame(img, captureCfg.WorkingWidth)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			out := struct {
				File string `json:"file"`
				domain.DetectionResult
			}{File: path, DetectionResult: analyzer.Analyze(frame)}

			if err := enc.Encode(out); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
