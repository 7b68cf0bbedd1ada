package store

import (
	"database/sql"
	"errors"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3_repokit"

const maxCachedPatterns = 256

var patterns *lru.Cache[string, *regexp.Regexp]

func init() {
	var err error
	patterns, err = lru.New[string, *regexp.Regexp](maxCachedPatterns)
	if err != nil {
		panic(err)
	}

	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

// regexpMatch implements `value REGEXP pattern`. SQLite passes the pattern
// first. Non-text values never match.
func regexpMatch(pattern string, value any) (bool, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return false, nil
	}

	re, ok := patterns.Get(pattern)
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		patterns.Add(pattern, re)
	}
	return re.MatchString(s), nil
}

// isUniqueViolation reports whether err is a primary key or unique
// constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique
}
