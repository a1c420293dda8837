package main

import (
	"RNChatMedia/internal/bootstrap"
	"RNChatMedia/internal/media"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the verified type and category of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			policy := bootstrap.NewPolicy(cfg)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:      %s\n", args[0])

			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			gate := media.NewGate(policy)
			if err := gate.Admit(args[0], info.Size(), 1); err != nil {
				fmt.Fprintf(out, "gate:      rejected (%v)\n", err)
			} else {
				fmt.Fprintf(out, "gate:      admitted (%d bytes)\n", info.Size())
			}

			verified, err := media.NewSniffer(policy).SniffFile(args[0])
			if errors.Is(err, media.ErrUnknownType) {
				fmt.Fprintln(out, "verdict:   invalid file type")
				return nil
			}
			if err != nil {
				return err
			}

			category, err := media.NewClassifier(policy).Classify(verified.MIME)
			if err != nil {
				return err
			}

			if err := media.NewSniffer(policy).CheckDeclared(args[0], verified); err != nil {
				fmt.Fprintf(out, "warning:   %v\n", err)
			}
			fmt.Fprintf(out, "mime:      %s\n", verified.MIME)
			fmt.Fprintf(out, "extension: %s\n", verified.Extension)
			fmt.Fprintf(out, "category:  %s\n", category)
			return nil
		},
	}
}
