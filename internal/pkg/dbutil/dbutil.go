package dbutil

import (
	"errors"
	"regexp"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize turns a gendry statement into postgres form: "LIMIT ?,?" becomes
// "LIMIT ? OFFSET ?" and placeholders are rebound to $N.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	loc := limitRegex.FindStringIndex(query)
	if loc != nil {
		prefix := query[:loc[0]]
		qCount := strings.Count(prefix, "?")
		if qCount+1 < len(args) {
			args[qCount], args[qCount+1] = args[qCount+1], args[qCount]
			query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func Insert(table string, rows []map[string]interface{}) (string, []interface{}, error) {
	q, args, err := builder.BuildInsert(table, rows)
	if err != nil {
		return "", nil, err
	}
	q, args = Finalize(q, args)
	return q, args, nil
}

func Select(table string, where map[string]interface{}, fields []string) (string, []interface{}, error) {
	q, args, err := builder.BuildSelect(table, where, fields)
	if err != nil {
		return "", nil, err
	}
	q, args = Finalize(q, args)
	return q, args, nil
}

func Delete(table string, where map[string]interface{}) (string, []interface{}, error) {
	q, args, err := builder.BuildDelete(table, where)
	if err != nil {
		return "", nil, err
	}
	q, args = Finalize(q, args)
	return q, args, nil
}

func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
