package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AniRecAI/anirec/engine/domain"
)

var infoCmd = &cobra.Command{
	Use:   "info <mal_id>",
	Short: "Show catalog details for the given MAL_ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid MAL_ID %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if err := a.rec.Setup(ctx, false); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	info, err := a.rec.LookupInfo(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("MAL_ID %d is not in the catalog", id)
		}
		return err
	}

	synopsis := info.Synopsis
	if runes := []rune(synopsis); len(runes) > 200 {
		synopsis = string(runes[:200]) + "..."
	}
	cmd.Printf("%s\n", info.Name)
	cmd.Printf("  MAL_ID:          %d\n", info.MALID)
	cmd.Printf("  Score:           %s\n", info.Score)
	cmd.Printf("  Genres:          %s\n", info.Genres)
	cmd.Printf("  Synopsis length: %d\n", info.SynopsisLength)
	cmd.Printf("  Synopsis:        %s\n", synopsis)
	return nil
}
