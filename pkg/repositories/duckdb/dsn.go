package duckdb

import (
	"net/url"
	"strings"
)

// IsMotherDuckDSN reports whether the given DSN targets MotherDuck.
func IsMotherDuckDSN(dsn string) bool {
	u, err := url.Parse(dsn)
	if err != nil {
		return false
	}
	return u.Scheme == "md" || u.Scheme == "motherduck"
}

// IsInMemoryDSN reports whether the DSN names a transient in-memory database.
func IsInMemoryDSN(dsn string) bool {
	trimmed := stripDuckDBScheme(strings.TrimSpace(dsn))
	return trimmed == "" || trimmed == ":memory:"
}

// NormalizeDSN rewrites a DuckDB DSN into the form opened per query.
// An optional duckdb:// scheme is stripped so URL-style DSNs open as plain
// paths. motherduck: URIs become the md: form understood by the driver with
// the token injected, and local database files gain access_mode=read_only so
// the engine refuses writes regardless of statement content. In-memory
// DSNs pass through empty; read_only would leave nothing to query.
func NormalizeDSN(dsn, token string) string {
	if IsInMemoryDSN(dsn) {
		return ""
	}
	dsn = stripDuckDBScheme(strings.TrimSpace(dsn))
	if IsMotherDuckDSN(dsn) {
		normalized := dsn
		if strings.HasPrefix(normalized, "motherduck:") {
			normalized = "md:" + strings.TrimPrefix(normalized, "motherduck:")
		}
		return injectMotherDuckToken(normalized, token)
	}
	return appendDSNParam(dsn, "access_mode", "read_only")
}

// injectMotherDuckToken ensures the motherduck_token query parameter is set
// when connecting to MotherDuck. If the DSN already carries the parameter or
// the token is empty, the DSN is returned unchanged.
func injectMotherDuckToken(dsn, token string) string {
	if token == "" {
		return dsn
	}
	return appendDSNParam(dsn, "motherduck_token", token)
}

// stripDuckDBScheme removes an optional duckdb:// prefix so DSNs written as
// URLs open as plain file paths.
func stripDuckDBScheme(dsn string) string {
	return strings.TrimPrefix(dsn, "duckdb://")
}

// appendDSNParam adds key=value to a DSN unless the key is already present.
func appendDSNParam(dsn, key, value string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + value
}
