package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barventory/barventory/internal/schema"
	"github.com/barventory/barventory/internal/store"
)

// StatusResult holds the status payload for both output formats.
type StatusResult struct {
	Path            string         `json:"path"`
	SchemaVersion   int            `json:"schema_version"`
	DeclaredVersion int            `json:"declared_version"`
	Counts          map[string]int `json:"counts"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show schema version and record counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	_, m, err := opts.OpenService()
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer m.Close()

	ctx := cmd.Context()
	version, err := m.SchemaVersion(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading schema version", err)
	}

	counts := map[string]int{}
	if counts[schema.Products.Name], err = store.Count(ctx, m, schema.Products); err != nil {
		return WrapExitError(ExitCommandError, "counting products", err)
	}
	if counts[schema.Locations.Name], err = store.Count(ctx, m, schema.Locations); err != nil {
		return WrapExitError(ExitCommandError, "counting locations", err)
	}
	if counts[schema.State.Name], err = store.Count(ctx, m, schema.State); err != nil {
		return WrapExitError(ExitCommandError, "counting state", err)
	}

	result := StatusResult{
		Path:            opts.DBPath,
		SchemaVersion:   version,
		DeclaredVersion: schema.Version,
		Counts:          counts,
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "database: %s\n", result.Path)
	fmt.Fprintf(&b, "schema version: %d (declared %d)\n", result.SchemaVersion, result.DeclaredVersion)
	for _, name := range schema.Collections() {
		fmt.Fprintf(&b, "  %s: %d record(s)\n", name, result.Counts[name])
	}
	return formatter.Success(strings.TrimRight(b.String(), "\n"))
}
