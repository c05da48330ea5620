// Package sqlxrepos implements the repositories on postgres with jmoiron/sqlx.
package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
)

type baseRepository struct {
	exec core.DBExecutor
}

// getExec returns the executor passed by the service (eg. a transaction), else the repository's own.
func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps psql "no rows" err to `notFound`
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes the LIKE wildcards of `s`; clauses using it need `ESCAPE '\'`.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// conditions accumulates AND-ed WHERE clauses with positional args.
type conditions struct {
	clauses []string
	args    []interface{}
}

// add appends a clause; every "?" in `clause` is bound to the next arg.
func (c *conditions) add(clause string, args ...interface{}) {
	for _, arg := range args {
		c.args = append(c.args, arg)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(c.args)), 1)
	}
	c.clauses = append(c.clauses, "("+clause+")")
}

func (c conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// orderBy renders an ORDER BY on the allowed fields of `ordering`, else on `fallback`.
func orderBy(ordering []core.DBOrdering, fallback string, allowed ...string) string {
	ordering = core.CleanOrdering(ordering, allowed...)
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
