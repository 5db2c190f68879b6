package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/recurring-ledger/internal/api/dto"
	"github.com/eshaffer321/recurring-ledger/internal/api/middleware"
	"github.com/eshaffer321/recurring-ledger/internal/domain/matcher"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// TransactionsHandler handles transaction import, listing and match lookup.
type TransactionsHandler struct {
	*Base
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(base *Base) *TransactionsHandler {
	return &TransactionsHandler{Base: base}
}

// Import stores a batch of transactions for the user.
func (h *TransactionsHandler) Import(c *gin.Context) {
	var req dto.ImportTransactionsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	n, err := h.tracker.ImportTransactions(c.Request.Context(), middleware.UserID(c), req.Transactions)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ImportResponse{Imported: n})
}

// List returns transactions with optional filtering.
// Query params:
//   - from, to: inclusive YYYY-MM-DD bounds
//   - unlinked: only transactions not funding a payment
//   - limit: max results (0 = all)
func (h *TransactionsHandler) List(c *gin.Context) {
	from, err := DateQuery(c, "from")
	if err != nil {
		h.WriteError(c, err)
		return
	}
	to, err := DateQuery(c, "to")
	if err != nil {
		h.WriteError(c, err)
		return
	}
	limit, err := IntQuery(c, "limit", 0)
	if err != nil {
		h.WriteError(c, err)
		return
	}

	txs, err := h.tracker.ListTransactions(c.Request.Context(), middleware.UserID(c), storage.TransactionFilter{
		From:         from,
		To:           to,
		UnlinkedOnly: BoolQuery(c, "unlinked", false),
		Limit:        limit,
	})
	if err != nil {
		h.WriteError(c, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}

	c.JSON(http.StatusOK, dto.TransactionListResponse{Transactions: txs, Count: len(txs)})
}

// Matches ranks the user's services against a transaction.
func (h *TransactionsHandler) Matches(c *gin.Context) {
	id := c.Param("id")
	matches, err := h.tracker.FindPotentialMatches(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	if matches == nil {
		matches = []matcher.MatchResult{}
	}

	c.JSON(http.StatusOK, dto.MatchListResponse{TransactionID: id, Matches: matches, Count: len(matches)})
}
