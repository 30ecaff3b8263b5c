package storage

import (
	"net/url"
	"strings"
)

// IsPostgres reports whether a connection string selects the PostgreSQL
// backend.
func IsPostgres(connStr string) bool {
	return strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://")
}

// HasEmbeddedCredentials reports whether a PostgreSQL connection string
// carries a password, in URL or key=value form.
func HasEmbeddedCredentials(connStr string) bool {
	if IsPostgres(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return false
		}
		if _, ok := u.User.Password(); ok {
			return true
		}
		return u.Query().Get("password") != ""
	}
	for _, pair := range strings.Fields(connStr) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "password") {
			return true
		}
	}
	return false
}
