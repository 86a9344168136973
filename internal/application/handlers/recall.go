package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/hindsight-core/internal/domain/services"
)

// RecallHandler handles queries against a bank.
type RecallHandler struct {
	engine *services.Engine
}

// NewRecallHandler creates a new recall handler.
func NewRecallHandler(engine *services.Engine) *RecallHandler {
	return &RecallHandler{engine: engine}
}

// RecallRequest is one query from a front-end.
type RecallRequest struct {
	BankID          string
	Query           string
	Budget          string
	MaxTokens       int
	FactType        string
	IncludeEntities bool
	IncludeChunks   bool
	MaxChunkTokens  int
}

// Handle runs one query.
func (h *RecallHandler) Handle(ctx context.Context, req RecallRequest) (*services.RecallResult, error) {
	if req.BankID == "" {
		return nil, fmt.Errorf("bank id is required")
	}
	if req.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	budget := services.Budget(req.Budget)
	switch budget {
	case "", services.BudgetLow, services.BudgetMid, services.BudgetHigh:
	default:
		return nil, fmt.Errorf("invalid budget %q (want LOW, MID, or HIGH)", req.Budget)
	}

	return h.engine.Recall(ctx, req.BankID, req.Query, services.RecallOptions{
		Budget:          budget,
		MaxTokens:       req.MaxTokens,
		FactType:        req.FactType,
		IncludeEntities: req.IncludeEntities,
		IncludeChunks:   req.IncludeChunks,
		MaxChunkTokens:  req.MaxChunkTokens,
	})
}
