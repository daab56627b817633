package postgres

import (
	"net/url"
	"strings"
)

// ReadOnlyDSN appends default_transaction_read_only=on to a postgres URL.
// pgx forwards unrecognized query parameters as server runtime settings,
// so every session opened from the returned DSN rejects writes. DSNs that
// already set the parameter are returned unchanged.
func ReadOnlyDSN(dsn string) string {
	if strings.Contains(dsn, "default_transaction_read_only=") {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	q := u.Query()
	q.Set("default_transaction_read_only", "on")
	u.RawQuery = q.Encode()
	return u.String()
}
