package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/hindsight-core/internal/application/handlers"
)

var (
	recallBank      string
	recallBudget    string
	recallMaxTokens int
	recallFactType  string
	recallEntities  bool
	recallChunks    bool
)

func newRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Query a memory bank",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecall,
	}

	cmd.Flags().StringVarP(&recallBank, "bank", "b", "", "Bank identifier (required)")
	cmd.Flags().StringVar(&recallBudget, "budget", "MID", "Result budget: LOW, MID, or HIGH")
	cmd.Flags().IntVar(&recallMaxTokens, "max-tokens", 0, "Approximate token bound on returned fact text (0 = unbounded)")
	cmd.Flags().StringVar(&recallFactType, "fact-type", "", "Restrict to one fact type (world, bank, or opinion)")
	cmd.Flags().BoolVar(&recallEntities, "entities", false, "Include linked entity names")
	cmd.Flags().BoolVar(&recallChunks, "chunks", false, "Include source chunk text")
	_ = cmd.MarkFlagRequired("bank")

	return cmd
}

func runRecall(cmd *cobra.Command, args []string) error {
	return withDeps(func(d *Deps) error {
		result, err := d.RecallHandler.Handle(cmd.Context(), handlers.RecallRequest{
			BankID:          recallBank,
			Query:           args[0],
			Budget:          recallBudget,
			MaxTokens:       recallMaxTokens,
			FactType:        recallFactType,
			IncludeEntities: recallEntities,
			IncludeChunks:   recallChunks,
		})
		if err != nil {
			return err
		}

		if len(result.Results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for i, hit := range result.Results {
			fmt.Printf("%d. [%.3f] (%s) %s\n", i+1, hit.Similarity, hit.FactType, hit.FactText)
			fmt.Printf("   mentioned at %s\n", hit.MentionedAt.Format("2006-01-02 15:04:05 MST"))
			if names := result.Entities[hit.UnitID]; len(names) > 0 {
				fmt.Printf("   entities: %v\n", names)
			}
			if text, ok := result.Chunks[hit.ChunkID]; ok && recallChunks {
				fmt.Printf("   chunk: %s\n", text)
			}
		}
		return nil
	})
}
