package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <snapshot.yaml>",
		Short: "Validate a snapshot file without importing it",
		Long: `Check a YAML snapshot file against the snapshot schema.

Performs the same validation as "import" without touching the database,
for fast feedback while editing snapshot files.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading snapshot file", err)
	}

	issues, err := ValidateSnapshot(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "validating snapshot file", err)
	}

	result := ValidationResult{Valid: len(issues) == 0, Issues: issues}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Valid {
		if err := formatter.Success(fmt.Sprintf("%s: valid", path)); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d issue(s)\n", path, len(issues))
		for _, issue := range issues {
			if issue.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", issue.Path, issue.Message)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", issue.Message)
			}
		}
	}

	if !result.Valid {
		return &ExitError{Code: ExitFailure, Message: "snapshot is invalid"}
	}
	return nil
}
