package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the debug view of an error chain logged next to 5xx responses.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	PG         *PGError `json:"pg,omitempty"`
}

// PGError holds the Postgres fields that identify a failed statement. Both
// the pgx and lib/pq drivers are understood.
type PGError struct {
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), Code: CodeOf(err), PG: PostgresError(err)}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

// PostgresError extracts driver detail from err, or nil.
func PostgresError(err error) *PGError {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGError{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGError{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
