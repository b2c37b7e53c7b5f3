package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barventory/barventory/internal/model"
	"github.com/barventory/barventory/internal/store"
)

// NewProductCommand creates the product command group.
func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Inspect and edit the product catalogue",
	}

	cmd.AddCommand(newProductListCommand(rootOpts))
	cmd.AddCommand(newProductPutCommand(rootOpts))
	cmd.AddCommand(newProductRmCommand(rootOpts))
	return cmd
}

func newProductListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all products",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			svc, m, err := rootOpts.OpenService()
			if err != nil {
				return WrapExitError(ExitCommandError, "opening store", err)
			}
			defer m.Close()

			products, err := svc.Products(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "listing products", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(products)
			}
			if len(products) == 0 {
				return formatter.Success("no products")
			}
			for _, p := range products {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%s) %.2fl %.2f\n", p.ID, p.Name, p.Category, p.Volume, p.Price)
			}
			return nil
		},
	}
}

func newProductPutCommand(rootOpts *RootOptions) *cobra.Command {
	var p model.Product

	cmd := &cobra.Command{
		Use:           "put",
		Short:         "Insert or update a product",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			svc, m, err := rootOpts.OpenService()
			if err != nil {
				return WrapExitError(ExitCommandError, "opening store", err)
			}
			defer m.Close()

			saved, err := svc.SaveProduct(cmd.Context(), p)
			if err != nil {
				return WrapExitError(ExitFailure, "saving product", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(saved)
			}
			return formatter.Success(saved.ID)
		},
	}

	cmd.Flags().StringVar(&p.ID, "id", "", "product id (minted when empty)")
	cmd.Flags().StringVar(&p.Name, "name", "", "product name")
	cmd.Flags().StringVar(&p.Category, "category", "", "product category")
	cmd.Flags().Float64Var(&p.Volume, "volume", 0, "bottle volume in litres")
	cmd.Flags().Float64Var(&p.Price, "price", 0, "price per bottle")
	cmd.Flags().StringVar(&p.Supplier, "supplier", "", "supplier name")
	cmd.Flags().StringVar(&p.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProductRmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <id>",
		Short:         "Delete a product",
		Long:          "Delete a product by id. Deleting an unknown id is not an error.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			svc, m, err := rootOpts.OpenService()
			if err != nil {
				return WrapExitError(ExitCommandError, "opening store", err)
			}
			defer m.Close()

			if err := svc.DeleteProduct(cmd.Context(), args[0]); err != nil {
				if store.IsUnavailable(err) {
					return WrapExitError(ExitCommandError, "deleting product", err)
				}
				return WrapExitError(ExitFailure, "deleting product", err)
			}
			return formatter.Success(fmt.Sprintf("deleted %s", args[0]))
		},
	}
}
