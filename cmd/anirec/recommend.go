package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AniRecAI/anirec/engine/domain"
)

var (
	recommendLimit    int
	recommendJSON     bool
	recommendSkipSelf bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <mal_id>",
	Short: "Recommend titles similar to the given MAL_ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecommend,
}

func init() {
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", 0, "number of results (default from config)")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "output results as JSON")
	recommendCmd.Flags().BoolVar(&recommendSkipSelf, "skip-self", false, "drop the reference title from the results")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
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

	results, err := a.rec.Recommend(ctx, id, recommendLimit)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownReference) {
			return fmt.Errorf("MAL_ID %d is not in the index", id)
		}
		return err
	}

	if recommendSkipSelf {
		kept := results[:0]
		for _, r := range results {
			if r.MALID != id {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	if recommendJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if ref, err := a.rec.LookupInfo(id); err == nil {
		cmd.Printf("recommendations for %s (MAL_ID: %d)\n", ref.Name, ref.MALID)
	}
	for i, r := range results {
		cmd.Printf("%2d. %s (MAL_ID: %d) score %.4f\n", i+1, r.Name, r.MALID, r.Score)
	}
	return nil
}
