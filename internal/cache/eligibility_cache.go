package cache

import (
	"context"

	"investment-platform/internal/withdrawal"
)

// EligibilityCache adapts CacheService to the withdrawal quote cache.
// Cache failures degrade to recomputation, never to an error.
type EligibilityCache struct {
	service *CacheService
}

// NewEligibilityCache wraps a cache service for eligibility quotes.
func NewEligibilityCache(service *CacheService) *EligibilityCache {
	return &EligibilityCache{service: service}
}

// GetEligibility returns a cached quote, or false on miss or cache failure.
func (c *EligibilityCache) GetEligibility(ctx context.Context, investmentID string) (*withdrawal.Eligibility, bool) {
	var elig withdrawal.Eligibility
	if err := c.service.GetJSON(ctx, EligibilityKey(investmentID), &elig); err != nil {
		return nil, false
	}
	return &elig, true
}

// SetEligibility stores a quote. Best effort.
func (c *EligibilityCache) SetEligibility(ctx context.Context, investmentID string, elig *withdrawal.Eligibility) {
	_ = c.service.SetJSON(ctx, EligibilityKey(investmentID), elig, DefaultEligibilityTTL)
}

// InvalidateEligibility drops a quote after a mutation.
func (c *EligibilityCache) InvalidateEligibility(ctx context.Context, investmentID string) {
	_ = c.service.Delete(ctx, EligibilityKey(investmentID))
}
