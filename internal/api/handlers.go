package api

import (
	"net/http"
	"strconv"

	"investment-platform/internal/auth"
	"investment-platform/internal/database"
	"investment-platform/internal/faults"
	"investment-platform/internal/plans"

	"github.com/gin-gonic/gin"
)

// errorResponse maps a domain error to an HTTP status and JSON body.
func errorResponse(c *gin.Context, err error) {
	switch {
	case faults.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": err.Error()})
	case faults.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION", "message": err.Error()})
	case faults.IsInvalidState(err):
		c.JSON(http.StatusConflict, gin.H{"error": "INVALID_STATE", "message": err.Error()})
	case faults.IsInsufficientBalance(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "INSUFFICIENT_BALANCE", "message": err.Error()})
	case faults.IsAlreadyProcessed(err):
		c.JSON(http.StatusConflict, gin.H{"error": "ALREADY_PROCESSED", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "message": "internal error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION", "message": message})
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func createdResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func limitParam(c *gin.Context, def, max int) int {
	limit := def
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// ==================== PLAN CATALOG ====================

// handleListPlans returns the active plan catalog. Public.
func (s *Server) handleListPlans(c *gin.Context) {
	list, err := s.services.Plans.ListActive(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, list)
}

// handleGetPlan returns a single plan by ID. Public.
func (s *Server) handleGetPlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid plan id")
		return
	}

	plan, err := s.services.Plans.Get(c.Request.Context(), planID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, plan)
}

type createPlanRequest struct {
	Name                  string  `json:"name" binding:"required"`
	TotalReturnPercentage float64 `json:"total_return_percentage" binding:"required"`
	DurationDays          int     `json:"duration_days" binding:"required"`
	MinInvestment         float64 `json:"min_investment"`
	MaxInvestment         float64 `json:"max_investment"`
}

// handleCreatePlan creates a plan. Admin only.
func (s *Server) handleCreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	plan := &database.Plan{
		Name:                  req.Name,
		TotalReturnPercentage: req.TotalReturnPercentage,
		DurationDays:          req.DurationDays,
		MinInvestment:         req.MinInvestment,
		MaxInvestment:         req.MaxInvestment,
		Active:                true,
	}

	if err := s.services.Plans.Create(c.Request.Context(), plan); err != nil {
		errorResponse(c, err)
		return
	}

	createdResponse(c, gin.H{
		"plan":               plan,
		"daily_rate_percent": plans.DeriveDailyRate(plan.TotalReturnPercentage, plan.DurationDays),
	})
}

type setPlanActiveRequest struct {
	Active bool `json:"active"`
}

// handleSetPlanActive opens or closes a plan for new investments. Admin only.
func (s *Server) handleSetPlanActive(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid plan id")
		return
	}

	var req setPlanActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := s.services.Plans.SetActive(c.Request.Context(), planID, req.Active); err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, gin.H{"id": planID, "active": req.Active})
}

// ==================== INVESTMENTS ====================

type createInvestmentRequest struct {
	PlanID     int64   `json:"plan_id" binding:"required"`
	Amount     float64 `json:"amount" binding:"required"`
	Currency   string  `json:"currency"`
	PaymentRef string  `json:"payment_ref"`
}

// handleCreateInvestment places a new pending investment for the caller.
func (s *Server) handleCreateInvestment(c *gin.Context) {
	var req createInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	inv, err := s.services.Investments.Create(c.Request.Context(), auth.GetUserID(c), req.PlanID, req.Amount, req.Currency, req.PaymentRef)
	if err != nil {
		errorResponse(c, err)
		return
	}
	createdResponse(c, inv)
}

// handleListInvestments lists the caller's investments.
func (s *Server) handleListInvestments(c *gin.Context) {
	list, err := s.services.Investments.ListByUser(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, list)
}

// handleGetInvestment returns one investment, owner or reviewer only.
func (s *Server) handleGetInvestment(c *gin.Context) {
	inv, err := s.services.Investments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	if inv.UserID != auth.GetUserID(c) && !s.isReviewer(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "FORBIDDEN", "message": "not your investment"})
		return
	}
	successResponse(c, inv)
}

// handleActivateInvestment confirms payment and starts the accrual window.
func (s *Server) handleActivateInvestment(c *gin.Context) {
	if !s.requireOwnerOrReviewer(c) {
		return
	}

	inv, err := s.services.Investments.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, inv)
}

type pauseRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// handlePauseInvestment suspends accrual on an active investment.
func (s *Server) handlePauseInvestment(c *gin.Context) {
	if !s.requireOwnerOrReviewer(c) {
		return
	}

	var req pauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "pause reason is required")
		return
	}

	inv, err := s.services.Investments.Pause(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, inv)
}

// handleResumeInvestment resumes accrual on a paused investment.
func (s *Server) handleResumeInvestment(c *gin.Context) {
	if !s.requireOwnerOrReviewer(c) {
		return
	}

	inv, err := s.services.Investments.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, inv)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// handleCancelInvestment cancels an investment that has not completed.
func (s *Server) handleCancelInvestment(c *gin.Context) {
	if !s.requireOwnerOrReviewer(c) {
		return
	}

	var req cancelRequest
	_ = c.ShouldBindJSON(&req)

	inv, err := s.services.Investments.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, inv)
}

// handleGetProfitHistory lists credited profit records for an investment.
func (s *Server) handleGetProfitHistory(c *gin.Context) {
	if !s.requireOwnerOrReviewer(c) {
		return
	}

	records, err := s.services.Calculator.History(c.Request.Context(), c.Param("id"), limitParam(c, 100, 500))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, records)
}

// isReviewer reports whether the caller holds the reviewer role or above.
func (s *Server) isReviewer(c *gin.Context) bool {
	role := auth.GetRole(c)
	return role == auth.RoleReviewer || role == auth.RoleAdmin
}

// requireOwnerOrReviewer loads the investment from the :id path param and
// aborts with 403 unless the caller owns it or can review. The ownership
// check here is advisory; services re-check under the row lock.
func (s *Server) requireOwnerOrReviewer(c *gin.Context) bool {
	if s.isReviewer(c) {
		return true
	}

	inv, err := s.services.Investments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return false
	}
	if inv.UserID != auth.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "FORBIDDEN", "message": "not your investment"})
		return false
	}
	return true
}
