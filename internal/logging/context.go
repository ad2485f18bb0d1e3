package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext adds a trace ID to the context and returns a logger with it
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// AccrualContext creates a logger context for profit accrual operations
func AccrualContext(investmentID, periodKey string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"investment_id": investmentID,
		"period_key":    periodKey,
	}).WithComponent("accrual")
}

// BatchContext creates a logger context for accrual batch runs
func BatchContext(periodKey string, total int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"period_key": periodKey,
		"total":      total,
	}).WithComponent("batch")
}

// WithdrawalContext creates a logger context for withdrawal operations
func WithdrawalContext(requestID, investmentID string, amount float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"request_id":    requestID,
		"investment_id": investmentID,
		"amount":        amount,
	}).WithComponent("withdrawal")
}

// ReferralContext creates a logger context for referral point operations
func ReferralContext(userID string, points int64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"user_id": userID,
		"points":  points,
	}).WithComponent("referral")
}

// InvestmentContext creates a logger context for lifecycle operations
func InvestmentContext(investmentID, status string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"investment_id": investmentID,
		"status":        status,
	}).WithComponent("investment")
}

// DatabaseContext creates a logger context for database operations
func DatabaseContext(operation, table string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"table":     table,
	}).WithComponent("database")
}

// NotificationContext creates a logger context for notifications
func NotificationContext(provider, recipient string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"provider":  provider,
		"recipient": recipient,
	}).WithComponent("notification")
}
