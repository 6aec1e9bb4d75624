package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ehving/noticesystem-sub000/internal/config"
	"github.com/ehving/noticesystem-sub000/internal/db/awsiam"
)

var errNoAuthMethod = errors.New("dynamic auth is configured but no supported auth method (awsRdsIam) is specified")

// BeforeConnectFunc runs before every new pool connection.
type BeforeConnectFunc func(ctx context.Context, connConfig *pgx.ConnConfig) error

// DynamicAuth returns a hook that sets a freshly signed password on each
// connection. It returns nil when cfg uses a static password.
func DynamicAuth(ctx context.Context, cfg *config.DatabaseConfig) (BeforeConnectFunc, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}
	if cfg.DynamicAuth == nil {
		return nil, nil
	}
	if cfg.DynamicAuth.AWSRDSIAM == nil {
		return nil, errNoAuthMethod
	}

	endpoint, err := awsiam.ResolveRegion(ctx, rdsEndpoint(cfg))
	if err != nil {
		return nil, err
	}
	user := cfg.User
	return func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		token, err := awsiam.Token(ctx, endpoint, user)
		if err != nil {
			return err
		}
		connConfig.Password = token
		return nil
	}, nil
}

// ConnectionString returns the system-of-record URL for one-off
// connections such as migrations. With dynamic auth the URL embeds a
// token, which expires after fifteen minutes.
func ConnectionString(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("database configuration is required")
	}
	if cfg.DynamicAuth == nil {
		return cfg.GetConnectionString()
	}
	if cfg.DynamicAuth.AWSRDSIAM == nil {
		return "", errNoAuthMethod
	}

	endpoint, err := awsiam.ResolveRegion(ctx, rdsEndpoint(cfg))
	if err != nil {
		return "", err
	}
	token, err := awsiam.Token(ctx, endpoint, cfg.User)
	if err != nil {
		return "", fmt.Errorf("failed to resolve auth token: %w", err)
	}
	return cfg.ConnectionStringWithPassword(token), nil
}

func rdsEndpoint(cfg *config.DatabaseConfig) awsiam.Endpoint {
	return awsiam.Endpoint{Host: cfg.Host, Port: cfg.Port, Region: cfg.DynamicAuth.AWSRDSIAM.Region}
}
