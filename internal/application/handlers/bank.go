package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/hindsight-core/internal/domain/services"
)

// BankHandler handles bank administration.
type BankHandler struct {
	engine *services.Engine
}

// NewBankHandler creates a new bank handler.
func NewBankHandler(engine *services.Engine) *BankHandler {
	return &BankHandler{engine: engine}
}

// Delete removes a bank and everything it contains.
func (h *BankHandler) Delete(ctx context.Context, bankID string) error {
	if bankID == "" {
		return fmt.Errorf("bank id is required")
	}
	return h.engine.DeleteBank(ctx, bankID)
}
