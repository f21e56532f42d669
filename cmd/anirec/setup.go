package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var setupRebuild bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Build the corpus, embeddings, and vector collection",
	Long: `Loads and filters the catalog, ensures synopsis embeddings exist
(reusing the cache file when valid), and populates the vector collection.
With --rebuild the embeddings and collection are regenerated from scratch.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVar(&setupRebuild, "rebuild", false, "force regeneration of embeddings and the collection")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if err := a.rec.Setup(ctx, setupRebuild); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	names, err := a.gateway.Collections(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("setup complete, collection %q ready\n", a.cfg.Collection)
	cmd.Printf("collections in store: %v\n", names)
	return nil
}
