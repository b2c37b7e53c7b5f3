package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var skipValidation bool

	cmd := &cobra.Command{
		Use:   "import <snapshot.yaml>",
		Short: "Replace the stored data with a snapshot file",
		Long: `Validate a YAML snapshot file and save it atomically.

The products and locations collections are replaced with the file's
contents: records missing from the file are deleted. The state record is
written only when the file carries one; otherwise the stored state is left
untouched. On any failure nothing is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], skipValidation, cmd)
		},
	}

	cmd.Flags().BoolVar(&skipValidation, "no-validate", false, "skip schema validation")
	return cmd
}

func runImport(opts *RootOptions, path string, skipValidation bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	snap, issues, err := loadSnapshotFile(path, !skipValidation)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading snapshot file", err)
	}
	if len(issues) > 0 {
		_ = formatter.Error("INVALID_SNAPSHOT", fmt.Sprintf("%s failed validation", path), issues)
		return &ExitError{Code: ExitFailure, Message: "snapshot is invalid"}
	}

	svc, m, err := opts.OpenService()
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer m.Close()

	if err := svc.SaveAll(cmd.Context(), snap); err != nil {
		return WrapExitError(ExitFailure, "saving snapshot", err)
	}

	formatter.VerboseLog("imported %d product(s), %d location(s)", len(snap.Products), len(snap.Locations))
	return formatter.Success(fmt.Sprintf("imported %s", path))
}
