package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("Successfully connected to PostgreSQL database: %s", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("Running database migrations...")

	migrations := []string{
		// Investment plans
		`CREATE TABLE IF NOT EXISTS plans (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			total_return_percentage DECIMAL(10, 4) NOT NULL,
			duration_days INT NOT NULL,
			min_investment DECIMAL(20, 2) NOT NULL DEFAULT 0,
			max_investment DECIMAL(20, 2) NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_active ON plans(active)`,

		// Investments
		`CREATE TABLE IF NOT EXISTS investments (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			plan_id BIGINT NOT NULL REFERENCES plans(id),
			principal DECIMAL(20, 2) NOT NULL,
			currency VARCHAR(10) NOT NULL DEFAULT 'USD',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP NOT NULL,
			daily_rate_percent DECIMAL(12, 8) NOT NULL,
			cumulative_profit DECIMAL(20, 8) NOT NULL DEFAULT 0,
			cumulative_withdrawn DECIMAL(20, 8) NOT NULL DEFAULT 0,
			principal_withdrawn DECIMAL(20, 8) NOT NULL DEFAULT 0,
			profit_withdrawn DECIMAL(20, 8) NOT NULL DEFAULT 0,
			paused_at TIMESTAMP,
			paused_reason TEXT,
			payment_ref VARCHAR(100) NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_investments_status ON investments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_investments_dates ON investments(start_date, end_date)`,

		// Profit records: the partial unique index is the idempotency key
		// preventing duplicate profit credit for a period.
		`CREATE TABLE IF NOT EXISTS profit_records (
			id BIGSERIAL PRIMARY KEY,
			investment_id UUID NOT NULL REFERENCES investments(id),
			period_key VARCHAR(40) NOT NULL,
			profit_amount DECIMAL(20, 8) NOT NULL,
			rate_used DECIMAL(12, 8) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'calculated',
			calculated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			manual_override BOOLEAN NOT NULL DEFAULT FALSE,
			override_reason TEXT,
			override_by VARCHAR(100)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_profit_records_idem
			ON profit_records(investment_id, period_key) WHERE status <> 'failed'`,
		`CREATE INDEX IF NOT EXISTS idx_profit_records_investment ON profit_records(investment_id)`,

		// Withdrawal requests
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id UUID PRIMARY KEY,
			investment_id UUID NOT NULL REFERENCES investments(id),
			user_id UUID NOT NULL,
			requested_amount DECIMAL(20, 2) NOT NULL,
			kind VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			principal_portion DECIMAL(20, 2) NOT NULL DEFAULT 0,
			profit_portion DECIMAL(20, 2) NOT NULL DEFAULT 0,
			fee DECIMAL(20, 2) NOT NULL DEFAULT 0,
			net_amount DECIMAL(20, 2) NOT NULL,
			payment_method VARCHAR(30) NOT NULL,
			reject_reason TEXT,
			requested_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reviewed_at TIMESTAMP,
			reviewed_by VARCHAR(100),
			processed_at TIMESTAMP,
			transaction_id VARCHAR(100)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_investment ON withdrawal_requests(investment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawal_requests(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawal_requests(status)`,

		// Referral accounts
		`CREATE TABLE IF NOT EXISTS referral_accounts (
			user_id UUID PRIMARY KEY,
			total_points BIGINT NOT NULL DEFAULT 0,
			available_points BIGINT NOT NULL DEFAULT 0,
			used_points BIGINT NOT NULL DEFAULT 0,
			tier VARCHAR(20) NOT NULL DEFAULT 'bronze',
			points_to_next_tier BIGINT NOT NULL DEFAULT 0,
			lifetime_referrals INT NOT NULL DEFAULT 0,
			lifetime_invested DECIMAL(20, 2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Equity conversion transactions
		`CREATE TABLE IF NOT EXISTS equity_transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			points_converted BIGINT NOT NULL,
			share_price DECIMAL(20, 2) NOT NULL,
			shares_received DECIMAL(20, 8) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			reject_reason TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reviewed_at TIMESTAMP,
			reviewed_by VARCHAR(100)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equity_user ON equity_transactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_equity_status ON equity_transactions(status)`,

		// Accrual batch history
		`CREATE TABLE IF NOT EXISTS accrual_batches (
			id BIGSERIAL PRIMARY KEY,
			period_key VARCHAR(40) NOT NULL,
			as_of TIMESTAMP NOT NULL,
			total INT NOT NULL DEFAULT 0,
			succeeded INT NOT NULL DEFAULT 0,
			failed INT NOT NULL DEFAULT 0,
			skipped INT NOT NULL DEFAULT 0,
			total_profit_distributed DECIMAL(20, 8) NOT NULL DEFAULT 0,
			failures JSONB,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accrual_batches_period ON accrual_batches(period_key)`,

		// Operators (platform accounts)
		`CREATE TABLE IF NOT EXISTS operators (
			id UUID PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			referred_by UUID,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operators_email ON operators(email)`,

		// Create updated_at trigger function
		`CREATE OR REPLACE FUNCTION update_updated_at_column()
		RETURNS TRIGGER AS $$
		BEGIN
			NEW.updated_at = CURRENT_TIMESTAMP;
			RETURN NEW;
		END;
		$$ language 'plpgsql'`,

		`DROP TRIGGER IF EXISTS update_investments_updated_at ON investments`,
		`CREATE TRIGGER update_investments_updated_at BEFORE UPDATE ON investments
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,

		`DROP TRIGGER IF EXISTS update_plans_updated_at ON plans`,
		`CREATE TRIGGER update_plans_updated_at BEFORE UPDATE ON plans
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,

		`DROP TRIGGER IF EXISTS update_referral_accounts_updated_at ON referral_accounts`,
		`CREATE TRIGGER update_referral_accounts_updated_at BEFORE UPDATE ON referral_accounts
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
