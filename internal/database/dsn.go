package database

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/voter-power/internal/config"
)

// configFromDSN turns a DSN or URL into the application database config
func configFromDSN(dsn string) (*config.Config, error) {
	pc, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid dsn: %w", err)
	}
	cfg := &config.Config{}
	cfg.Database = config.DatabaseConfig{
		Enabled:        true,
		Host:           pc.Host,
		Port:           int(pc.Port),
		Name:           pc.Database,
		User:           pc.User,
		Password:       pc.Password,
		MaxConnections: 2,
	}
	if pc.TLSConfig == nil {
		cfg.Database.SSLMode = "disable"
	} else {
		cfg.Database.SSLMode = "require"
	}
	return cfg, nil
}
