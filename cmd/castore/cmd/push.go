package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push <ref>",
	Short: "Push to remote registry",
	Long:  "Push every stored file to an OCI registry image, e.g. ttl.sh/castore/files:main.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) (err error) {
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

	fmt.Fprintf(cmd.ErrOrStderr(), "Pushing to %s...\n", ref)

	if err := s.Push(cmd.Context(), ref); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Done.")
	return nil
}
