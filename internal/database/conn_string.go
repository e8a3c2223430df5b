package database

import (
	"fmt"
	"net/url"

	"github.com/farmsight/herdfeed/internal/config"
)

// BuildConnString assembles the postgres:// DSN for the weight-archive
// database. The password is escaped so credentials with URL metacharacters
// survive pgx's DSN parsing.
func BuildConnString(cfg config.DBConfig) string {
	escapedPassword := url.QueryEscape(cfg.Password)

	// Archive deployments on the farm LAN typically run without TLS;
	// prefer negotiates it when the server offers it.
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}
