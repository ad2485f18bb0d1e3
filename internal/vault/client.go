package vault

import (
	"context"
	"fmt"
	"sync"

	"investment-platform/config"

	"github.com/hashicorp/vault/api"
)

// AppSecrets holds the secret material the platform reads at startup.
type AppSecrets struct {
	DatabasePassword string `json:"database_password"`
	JWTSecret        string `json:"jwt_secret"`
	WebhookURL       string `json:"webhook_url"`
}

// Client wraps the HashiCorp Vault client. When Vault is disabled the
// client serves secrets from a local in-memory store so development and
// tests work without a Vault server.
type Client struct {
	client       *api.Client
	config       config.VaultConfig
	mu           sync.RWMutex
	cache        *AppSecrets
	cacheEnabled bool
}

// NewClient creates a new Vault client
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{
			config:       cfg,
			cacheEnabled: true,
		}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{
			CACert: cfg.CACert,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	return &Client{
		client:       client,
		config:       cfg,
		cacheEnabled: true,
	}, nil
}

// StoreAppSecrets writes the application secrets to Vault.
func (c *Client) StoreAppSecrets(ctx context.Context, secrets AppSecrets) error {
	if !c.config.Enabled {
		c.mu.Lock()
		c.cache = &secrets
		c.mu.Unlock()
		return nil
	}

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"database_password": secrets.DatabasePassword,
			"jwt_secret":        secrets.JWTSecret,
			"webhook_url":       secrets.WebhookURL,
		},
	}

	_, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(), secretData)
	if err != nil {
		return fmt.Errorf("failed to store app secrets in vault: %w", err)
	}

	if c.cacheEnabled {
		c.mu.Lock()
		c.cache = &secrets
		c.mu.Unlock()
	}

	return nil
}

// GetAppSecrets reads the application secrets from Vault.
func (c *Client) GetAppSecrets(ctx context.Context) (*AppSecrets, error) {
	if c.cacheEnabled {
		c.mu.RLock()
		if c.cache != nil {
			cached := *c.cache
			c.mu.RUnlock()
			return &cached, nil
		}
		c.mu.RUnlock()
	}

	if !c.config.Enabled {
		return nil, fmt.Errorf("app secrets not found and vault is disabled")
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read app secrets from vault: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("app secrets not found")
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	secrets := &AppSecrets{
		DatabasePassword: getString(data, "database_password"),
		JWTSecret:        getString(data, "jwt_secret"),
		WebhookURL:       getString(data, "webhook_url"),
	}

	if c.cacheEnabled {
		c.mu.Lock()
		c.cache = secrets
		c.mu.Unlock()
	}

	return secrets, nil
}

// ApplyToConfig overlays Vault-held secrets onto the loaded config.
// Missing Vault fields leave the environment-supplied values in place.
func (c *Client) ApplyToConfig(ctx context.Context, cfg *config.Config) error {
	if !c.config.Enabled {
		return nil
	}

	secrets, err := c.GetAppSecrets(ctx)
	if err != nil {
		return err
	}

	if secrets.DatabasePassword != "" {
		cfg.DatabaseConfig.Password = secrets.DatabasePassword
	}
	if secrets.JWTSecret != "" {
		cfg.AuthConfig.JWTSecret = secrets.JWTSecret
	}
	if secrets.WebhookURL != "" {
		cfg.NotificationConfig.Webhook.URL = secrets.WebhookURL
	}

	return nil
}

// ClearCache clears the in-memory copy of the secrets
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cache = nil
	c.mu.Unlock()
}

// SetCacheEnabled enables or disables caching
func (c *Client) SetCacheEnabled(enabled bool) {
	c.mu.Lock()
	c.cacheEnabled = enabled
	c.mu.Unlock()
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

// secretPath returns the KV v2 data path for the app secrets
func (c *Client) secretPath() string {
	return fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// NewMockClient creates a disabled client backed by the local store,
// for testing.
func NewMockClient() *Client {
	return &Client{
		config: config.VaultConfig{
			Enabled: false,
		},
		cacheEnabled: true,
	}
}
