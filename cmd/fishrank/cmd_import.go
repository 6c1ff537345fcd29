package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rewired-gh/fishrank/internal/importer"
	"github.com/rewired-gh/fishrank/internal/logger"
	"github.com/spf13/cobra"
)

// importCmd loads a JSON batch of declarations
var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import actors, sites, assets and captures from JSON",
	Long: `Import a JSON document of the form
  {"actors": [...], "sites": [...], "assets": [...], "captures": [...]}
Records without an id are assigned one. Reads stdin when file is "-" or omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

// migrateCmd creates the schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)
		logger.Info("Schema ready (%s)", store.Driver())
		return nil
	},
}

func runImport(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	sum, err := importer.Load(ctx, store, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d actors, %d sites, %d assets, %d captures\n",
		sum.Actors, sum.Sites, sum.Assets, sum.Captures)
	return nil
}
