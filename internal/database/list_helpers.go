package database

import (
	"fmt"
	"strings"
)

// pqString stores "" as NULL, so optional history columns stay NULL
// rather than holding empty strings.
func pqString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// queryBuilder collects the history list filters as AND-ed conditions
// with $N placeholders.
type queryBuilder struct {
	where []string
	args  []any
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

// Add appends clause, whose single %s becomes the next placeholder bound
// to val.
func (qb *queryBuilder) Add(clause string, val any) {
	qb.args = append(qb.args, val)
	qb.where = append(qb.where, strings.Replace(clause, "%s", fmt.Sprintf("$%d", len(qb.args)), 1))
}

// WhereClause returns " WHERE ..." or "" when there are no conditions.
func (qb *queryBuilder) WhereClause() string {
	if len(qb.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(qb.where, " AND ")
}

// Args returns the values in placeholder order.
func (qb *queryBuilder) Args() []any {
	return qb.args
}
