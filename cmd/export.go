package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/corner/internal"
	"github.com/iksnae/corner/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [group-id...]",
	Short: "Export group transcripts to file",
	Long: `Export the chat history, polls and activities of groups to various formats
(jsonl, md, yaml, json).

Without arguments every group you belong to is exported. Use --out - to write
a single group to standard output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}
		if outputDir == "-" && len(args) != 1 {
			return fmt.Errorf("--out - needs exactly one group id")
		}

		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.signIn(ctx); err != nil {
				return err
			}

			groupIDs := args
			if len(groupIDs) == 0 {
				groups, err := env.app.Groups.List(ctx)
				if err != nil {
					return err
				}
				for _, g := range groups {
					groupIDs = append(groupIDs, g.ID)
				}
			}
			if len(groupIDs) == 0 {
				internal.PrintInfo("No groups to export")
				return nil
			}

			if outputDir == "-" {
				t, err := env.app.BuildTranscript(ctx, groupIDs[0])
				if err != nil {
					return fmt.Errorf("failed to collect group %s: %w", groupIDs[0], err)
				}
				return exporter.Export(t, cmd.OutOrStdout())
			}

			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			steps := make([]internal.ProgressStep, 0, len(groupIDs))
			for _, groupID := range groupIDs {
				groupID := groupID
				steps = append(steps, internal.ProgressStep{
					Message: fmt.Sprintf("Exporting group %s", groupID),
					Fn: func() error {
						t, err := env.app.BuildTranscript(ctx, groupID)
						if err != nil {
							return err
						}
						path := filepath.Join(outputDir, fmt.Sprintf("group_%s.%s", groupID, exporter.Extension()))
						return writeExport(exporter, t, path)
					},
				})
			}
			if err := internal.ShowProgressWithSteps(ctx, steps); err != nil {
				return err
			}

			internal.PrintSuccess(fmt.Sprintf("Export complete: %d group(s) exported to %s", len(groupIDs), outputDir))
			return nil
		})
	},
}

func writeExport(exporter export.Exporter, t *internal.Transcript, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if err := exporter.Export(t, file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to export group %s: %w", t.GroupID, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory, or - for standard output")
}
