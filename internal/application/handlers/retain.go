// Package handlers adapts the engine API for front-ends: input resolution
// (files vs literal text), option plumbing, and presentable results. No
// business logic lives here.
package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/services"
)

// RetainHandler handles content ingestion into a bank.
type RetainHandler struct {
	engine *services.Engine
}

// NewRetainHandler creates a new retain handler.
func NewRetainHandler(engine *services.Engine) *RetainHandler {
	return &RetainHandler{engine: engine}
}

// RetainRequest is one ingestion request from a front-end.
type RetainRequest struct {
	BankID           string
	BankName         string // seeds the profile name when the bank is created lazily
	Content          string
	FilePath         string // alternative to Content; read from disk
	Context          string
	EventDate        *time.Time
	DocumentID       string
	Append           bool
	FactTypeOverride string
	ConfidenceScore  *float64
}

// RetainResult contains the ids of the units a request produced.
type RetainResult struct {
	UnitIDs []string
}

// Handle ingests one request. Exactly one of Content or FilePath must be
// set.
func (h *RetainHandler) Handle(ctx context.Context, req RetainRequest) (*RetainResult, error) {
	if req.BankID == "" {
		return nil, fmt.Errorf("bank id is required")
	}

	content := req.Content
	if req.FilePath != "" {
		if content != "" {
			return nil, fmt.Errorf("pass either literal content or a file, not both")
		}
		absPath, err := filepath.Abs(req.FilePath)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
		content = string(data)
	}
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	unitIDs, err := h.engine.Retain(ctx, req.BankID,
		services.RetainContentInput{
			Content:   content,
			Context:   req.Context,
			EventDate: req.EventDate,
		},
		services.RetainOptions{
			DocumentID:       req.DocumentID,
			Append:           req.Append,
			FactTypeOverride: req.FactTypeOverride,
			ConfidenceScore:  req.ConfidenceScore,
			BankName:         req.BankName,
		})
	if err != nil {
		return nil, err
	}
	return &RetainResult{UnitIDs: unitIDs}, nil
}
