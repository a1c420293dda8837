package main

import (
	"RNChatMedia/internal/bootstrap"
	"RNChatMedia/internal/helper"
	"RNChatMedia/internal/media"
	"RNChatMedia/internal/metrics"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func transcodeCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "transcode <file>",
		Short: "Convert a file to its web form",
		Long: `Copy a file into the output directory under a fresh identifier, verify
its content and run the transcoder its category maps to. The source file is
never modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir, err = os.MkdirTemp("", "mediactl-")
				if err != nil {
					return err
				}
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			policy := bootstrap.NewPolicy(cfg)
			dispatcher, err := bootstrap.NewDispatcher(cfg, nil, metrics.Nop())
			if err != nil {
				return err
			}

			id := helper.GenerateStoredID()
			path := filepath.Join(outDir, id)
			if err := copyFile(args[0], path); err != nil {
				return err
			}

			verified, err := media.NewSniffer(policy).SniffFile(path)
			if err != nil {
				return err
			}
			category, err := media.NewClassifier(policy).Classify(verified.MIME)
			if err != nil {
				return err
			}

			stored := media.StoredFile{ID: id, Path: path, Verified: verified}
			result, err := dispatcher.Dispatch(helper.WithUploadID(cmd.Context(), id), stored, category)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "category: %s\n", category)
			fmt.Fprintf(out, "tool:     %s\n", result.Tool)
			fmt.Fprintf(out, "type:     %s\n", result.MIME)
			fmt.Fprintf(out, "output:   %s\n", result.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: a new temporary directory)")

	return cmd
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
