package api

import (
	"investment-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// handleWithdrawalQuote returns current withdrawal eligibility for an
// investment without creating a request.
func (s *Server) handleWithdrawalQuote(c *gin.Context) {
	elig, err := s.services.Withdrawals.Quote(c.Request.Context(), auth.GetUserID(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, elig)
}

type withdrawalRequestBody struct {
	InvestmentID  string  `json:"investment_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
}

// handleRequestWithdrawal creates a withdrawal request. The fee is
// computed and frozen here; later schedule changes do not touch it.
func (s *Server) handleRequestWithdrawal(c *gin.Context) {
	var req withdrawalRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	wr, err := s.services.Withdrawals.Request(c.Request.Context(), auth.GetUserID(c), req.InvestmentID, req.Amount, req.PaymentMethod)
	if err != nil {
		errorResponse(c, err)
		return
	}
	createdResponse(c, wr)
}

// handleListWithdrawals lists the caller's withdrawal requests.
func (s *Server) handleListWithdrawals(c *gin.Context) {
	list, err := s.services.Withdrawals.ListByUser(c.Request.Context(), auth.GetUserID(c), limitParam(c, 50, 200))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, list)
}

// handleGetWithdrawal returns one of the caller's withdrawal requests.
func (s *Server) handleGetWithdrawal(c *gin.Context) {
	wr, err := s.services.Withdrawals.Get(c.Request.Context(), auth.GetUserID(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, wr)
}

// handleCancelWithdrawal cancels a pending request, releasing its
// reservation.
func (s *Server) handleCancelWithdrawal(c *gin.Context) {
	wr, err := s.services.Withdrawals.Cancel(c.Request.Context(), auth.GetUserID(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, wr)
}

// ==================== REVIEWER ENDPOINTS ====================

// handleWithdrawalReviewQueue lists pending requests oldest first.
func (s *Server) handleWithdrawalReviewQueue(c *gin.Context) {
	list, err := s.services.Withdrawals.ReviewQueue(c.Request.Context(), limitParam(c, 50, 200))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, list)
}

type reviewBody struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// handleReviewWithdrawal approves or rejects a pending request.
func (s *Server) handleReviewWithdrawal(c *gin.Context) {
	var req reviewBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	wr, err := s.services.Withdrawals.Review(c.Request.Context(), c.Param("id"), req.Approve, auth.GetUserID(c), req.Reason)
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, wr)
}

// handleProcessWithdrawal moves an approved request into processing.
func (s *Server) handleProcessWithdrawal(c *gin.Context) {
	wr, err := s.services.Withdrawals.StartProcessing(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, wr)
}

type completeWithdrawalBody struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

// handleCompleteWithdrawal records payout settlement: the ledger debit
// and the status change commit together.
func (s *Server) handleCompleteWithdrawal(c *gin.Context) {
	var req completeWithdrawalBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "transaction_id is required")
		return
	}

	wr, err := s.services.Withdrawals.Complete(c.Request.Context(), c.Param("id"), req.TransactionID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, wr)
}
