package vault

import (
	"context"
	"errors"
	"fmt"

	"signal-engine/config"
	"signal-engine/internal/logging"

	"github.com/hashicorp/vault/api"
)

// ErrSecretNotFound is returned when the configured path holds no secret
var ErrSecretNotFound = errors.New("vault secret not found")

// ServiceSecrets are the credentials the service reads from Vault
type ServiceSecrets struct {
	JWTSecret        string `json:"jwt_secret"`
	DatabasePassword string `json:"db_password"`
	RedisPassword    string `json:"redis_password"`
}

// Client wraps the HashiCorp Vault client
type Client struct {
	client *api.Client
	config config.VaultConfig
	logger *logging.Logger
}

// NewClient creates a new Vault client. A disabled config yields a client
// whose reads are no-ops.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	c := &Client{config: cfg, logger: logging.WithComponent("vault")}
	if !cfg.Enabled {
		return c, nil
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
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	c.client = client
	return c, nil
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// ReadSecrets reads the service secret from the KV v2 engine
func (c *Client) ReadSecrets(ctx context.Context) (*ServiceSecrets, error) {
	if !c.config.Enabled {
		return &ServiceSecrets{}, nil
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w at %s", ErrSecretNotFound, c.secretPath())
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format at %s", c.secretPath())
	}

	return &ServiceSecrets{
		JWTSecret:        getString(data, "jwt_secret"),
		DatabasePassword: getString(data, "db_password"),
		RedisPassword:    getString(data, "redis_password"),
	}, nil
}

// Apply reads the service secret and writes every non-empty value into cfg
func (c *Client) Apply(ctx context.Context, cfg *config.Config) error {
	if !c.config.Enabled {
		return nil
	}

	secrets, err := c.ReadSecrets(ctx)
	if err != nil {
		return err
	}

	applied := 0
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
			applied++
		}
	}
	set(&cfg.AuthConfig.JWTSecret, secrets.JWTSecret)
	set(&cfg.DatabaseConfig.Password, secrets.DatabasePassword)
	set(&cfg.RedisConfig.Password, secrets.RedisPassword)

	c.logger.Info("loaded secrets from vault", "path", c.secretPath(), "applied", applied)
	return nil
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return errors.New("vault is sealed")
	}
	return nil
}

// secretPath returns the KV v2 data path of the service secret
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
