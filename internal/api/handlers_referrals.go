package api

import (
	"investment-platform/internal/auth"
	"investment-platform/internal/referral"

	"github.com/gin-gonic/gin"
)

// handleGetReferralAccount returns the caller's referral account along
// with tier progression info. Users with no awards yet get a zero-value
// bronze account.
func (s *Server) handleGetReferralAccount(c *gin.Context) {
	account, err := s.services.Referrals.GetAccount(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		errorResponse(c, err)
		return
	}

	tier := referral.TierByName(account.Tier)
	successResponse(c, gin.H{
		"account":          account,
		"tier_multiplier":  tier.Multiplier,
		"points_per_refer": tier.PointsPerReferral,
		"next_tier":        nextTierName(account.Tier),
	})
}

func nextTierName(current string) string {
	next, ok := referral.NextTier(referral.TierByName(current))
	if !ok {
		return ""
	}
	return next.Name
}

type convertBody struct {
	Points int64 `json:"points" binding:"required"`
}

// handleConvertToEquity reserves points and opens a pending equity
// conversion for review.
func (s *Server) handleConvertToEquity(c *gin.Context) {
	var req convertBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	txn, err := s.services.Referrals.ConvertToEquity(c.Request.Context(), auth.GetUserID(c), req.Points)
	if err != nil {
		errorResponse(c, err)
		return
	}
	createdResponse(c, txn)
}

// handleListConversions lists the caller's equity conversions.
func (s *Server) handleListConversions(c *gin.Context) {
	list, err := s.services.Referrals.ListConversions(c.Request.Context(), auth.GetUserID(c), limitParam(c, 50, 200))
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, list)
}

// handleReviewConversion approves or rejects a pending equity
// conversion. Rejection refunds the reserved points.
func (s *Server) handleReviewConversion(c *gin.Context) {
	var req reviewBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	txn, err := s.services.Referrals.ReviewConversion(c.Request.Context(), c.Param("id"), req.Approve, auth.GetUserID(c), req.Reason)
	if err != nil {
		errorResponse(c, err)
		return
	}
	successResponse(c, txn)
}
