package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull <ref>",
	Short: "Pull from remote registry",
	Long:  "Import files from an OCI registry image. Files already stored locally are kept as they are.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) (err error) {
	ref := args[0]

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Pulling %s...\n", ref)

	res, err := s.Pull(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Done. Imported %d, skipped %d, rejected %d.\n", res.Imported, res.Skipped, res.Rejected)
	return nil
}
