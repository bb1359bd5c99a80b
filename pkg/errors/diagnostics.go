package errors

import (
	stdErrors "errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// DBFault is the driver-level detail behind a storage failure.
type DBFault struct {
	Engine     string `json:"engine"`
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Diagnostics is the log-only view of an error. It never reaches clients.
type Diagnostics struct {
	Message string   `json:"message"`
	Code    Code     `json:"code,omitempty"`
	Chain   []string `json:"chain,omitempty"`
	DB      *DBFault `json:"db,omitempty"`
}

func Inspect(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}
	diag := Diagnostics{Message: err.Error(), DB: dbFault(err)}
	if typed := As(err); typed != nil {
		diag.Code = typed.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		diag.Chain = append(diag.Chain, fmt.Sprintf("%T", e))
	}
	return diag
}

// Fields flattens the diagnostics for structured logging.
func (d Diagnostics) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.Message,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if d.DB != nil {
		fields["db_engine"] = d.DB.Engine
		fields["db_code"] = d.DB.Code
		if d.DB.Constraint != "" {
			fields["db_constraint"] = d.DB.Constraint
		}
		if d.DB.Table != "" {
			fields["db_table"] = d.DB.Table
		}
		if d.DB.Detail != "" {
			fields["db_detail"] = d.DB.Detail
		}
	}
	return fields
}

func dbFault(err error) *DBFault {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return &DBFault{
			Engine:     "postgres",
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return &DBFault{
			Engine:     "postgres",
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	var liteErr sqlite3.Error
	if stdErrors.As(err, &liteErr) {
		return &DBFault{
			Engine:  "sqlite",
			Code:    strconv.Itoa(int(liteErr.ExtendedCode)),
			Message: liteErr.Error(),
		}
	}
	return nil
}
