package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full snapshot as YAML",
		Long: `Export every product, every location tree and the state record
as one YAML snapshot, suitable for re-import with "barventory import".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, outPath, cmd)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func runExport(opts *RootOptions, outPath string, cmd *cobra.Command) error {
	svc, m, err := opts.OpenService()
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer m.Close()

	snap, err := svc.LoadAll(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "loading snapshot", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return WrapExitError(ExitCommandError, "encoding snapshot", err)
	}
	if err := enc.Close(); err != nil {
		return WrapExitError(ExitCommandError, "encoding snapshot", err)
	}

	if outPath == "" {
		fmt.Fprint(cmd.OutOrStdout(), buf.String())
		return nil
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return WrapExitError(ExitCommandError, "writing snapshot file", err)
	}
	return nil
}
