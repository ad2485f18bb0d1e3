package api

import (
	"time"

	"investment-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

type runBatchBody struct {
	AsOf string `json:"as_of"` // RFC3339; defaults to now
}

// handleRunAccrualBatch triggers an accrual batch on demand. Manual runs
// go through the same idempotent path as scheduled ones, so re-running a
// period only fills gaps.
func (s *Server) handleRunAccrualBatch(c *gin.Context) {
	var req runBatchBody
	_ = c.ShouldBindJSON(&req)

	asOf := time.Now().UTC()
	if req.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, req.AsOf)
		if err != nil {
			badRequest(c, "as_of must be RFC3339")
			return
		}
		asOf = parsed.UTC()
	}

	summary, err := s.services.Scheduler.RunBatch(c.Request.Context(), asOf)
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, summary)
}

// handleListAccrualBatches lists recent batch summaries.
func (s *Server) handleListAccrualBatches(c *gin.Context) {
	batches, err := s.services.Scheduler.BatchHistory(c.Request.Context(), limitParam(c, 30, 100))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, batches)
}

// handleAccrualStatus reports whether the scheduler loop is running and
// the cache health it depends on for batch locking.
func (s *Server) handleAccrualStatus(c *gin.Context) {
	resp := gin.H{
		"running": s.services.Scheduler.IsRunning(),
	}
	if s.cacheService != nil {
		resp["cache"] = s.cacheService.GetStats()
	}
	successResponse(c, resp)
}

type overrideBody struct {
	InvestmentID string  `json:"investment_id" binding:"required"`
	PeriodKey    string  `json:"period_key" binding:"required"`
	Amount       float64 `json:"amount"`
	Reason       string  `json:"reason" binding:"required"`
}

// handleProfitOverride replaces a period's credited profit with an
// operator-supplied amount. The cumulative ledger is adjusted by the
// delta in the same transaction.
func (s *Server) handleProfitOverride(c *gin.Context) {
	var req overrideBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	record, err := s.services.Calculator.Override(c.Request.Context(), req.InvestmentID, req.PeriodKey, req.Amount, req.Reason, auth.GetUserID(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, record)
}
