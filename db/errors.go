package db

import (
	"strings"

	"github.com/teranos/promptvars/errors"
)

// ErrDatabaseClosed marks template store queries that ran after the
// connection was closed, e.g. a CLI command racing its deferred Close.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or a driver
// error saying the same. database/sql and go-sqlite3 return their own
// unexported errors, so their message is matched as well.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
