package db

import (
	"strconv"
	"strings"
)

// Dialect names the SQL flavour a *sql.DB speaks
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Rebind rewrites ? placeholders into the dialect's bind syntax.
// Queries are written once with ? and rebound for Postgres ($1, $2, ...).
// Question marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// migrationDir is the embedded directory holding the dialect's migrations
func (d Dialect) migrationDir() string {
	return string(d) + "/migrations"
}
