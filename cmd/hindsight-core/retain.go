package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ersonp/hindsight-core/internal/application/handlers"
)

var (
	retainBank       string
	retainFile       string
	retainContext    string
	retainEventDate  string
	retainDocument   string
	retainAppend     bool
	retainFactType   string
	retainConfidence float64
)

func newRetainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retain [text]",
		Short: "Ingest text or a file into a memory bank",
		Long:  "Extracts facts from the given text (or --file), embeds them, and stores them with temporal, semantic, and causal links.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRetain,
	}

	cmd.Flags().StringVarP(&retainBank, "bank", "b", "", "Bank identifier (required)")
	cmd.Flags().StringVarP(&retainFile, "file", "f", "", "Read content from a file instead of the argument")
	cmd.Flags().StringVarP(&retainContext, "context", "c", "", "Free-text context for extraction")
	cmd.Flags().StringVar(&retainEventDate, "event-date", "", "Reference date (RFC 3339 or YYYY-MM-DD); defaults to now")
	cmd.Flags().StringVarP(&retainDocument, "document", "d", "", "Document id to group facts under")
	cmd.Flags().BoolVar(&retainAppend, "append", false, "Append to an existing document instead of replacing it")
	cmd.Flags().StringVar(&retainFactType, "fact-type", "", "Override every fact's type (world, bank, or opinion)")
	cmd.Flags().Float64Var(&retainConfidence, "confidence", 0, "Confidence score applied to every fact")
	_ = cmd.MarkFlagRequired("bank")

	return cmd
}

func runRetain(cmd *cobra.Command, args []string) error {
	req := handlers.RetainRequest{
		BankID:           retainBank,
		FilePath:         retainFile,
		Context:          retainContext,
		DocumentID:       retainDocument,
		Append:           retainAppend,
		FactTypeOverride: retainFactType,
	}
	if len(args) == 1 {
		req.Content = args[0]
	}
	if retainEventDate != "" {
		eventDate, err := parseEventDate(retainEventDate)
		if err != nil {
			return err
		}
		req.EventDate = &eventDate
	}
	if cmd.Flags().Changed("confidence") {
		req.ConfidenceScore = &retainConfidence
	}

	return withDeps(func(d *Deps) error {
		if profile, ok := d.Profiles.Get(retainBank); ok {
			req.BankName = profile.Name
		}
		result, err := d.RetainHandler.Handle(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Printf("Retained %d fact(s) in bank %s\n", len(result.UnitIDs), retainBank)
		for _, id := range result.UnitIDs {
			fmt.Printf("  %s\n", id)
		}
		return nil
	})
}

func parseEventDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid event date %q (want RFC 3339 or YYYY-MM-DD)", s)
}
