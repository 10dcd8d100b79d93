package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aweris/castore"
)

var getCmd = &cobra.Command{
	Use:   "get <hash>",
	Short: "Retrieve a file",
	Long:  "Retrieve a file by content hash. Writes to the stored name unless --output is given; --output - writes to stdout.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringP("output", "o", "", "output path, or - for stdout")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) (err error) {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	name, data, err := s.GetFile(castore.Digest(args[0]))
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if out == "" {
		// Stored names are caller supplied; never let one escape the working directory.
		out = filepath.Base(name)
		if out == "." || out == string(filepath.Separator) {
			out = args[0]
		}
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(data), out)
	return nil
}
