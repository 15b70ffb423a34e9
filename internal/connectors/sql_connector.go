package connectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// SQLConnector writes records into an external Postgres or MySQL table.
// The mapped payload keys are used as column names directly; field
// mappings are expected to produce valid column identifiers.
type SQLConnector struct {
	dbType string // "postgres" or "mysql"
	table  string
	db     *sql.DB
}

func NewSQLConnector(cfg AdapterConfig) (*SQLConnector, error) {
	connStr, err := buildConnectionString(cfg.Type, cfg.DB)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Type, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &SQLConnector{
		dbType: cfg.Type,
		table:  cfg.Entity,
		db:     db,
	}, nil
}

// Close releases the underlying connection pool.
func (c *SQLConnector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *SQLConnector) CreateRecord(ctx context.Context, payload map[string]interface{}) (*RecordOutcome, error) {
	columns, values := sortedColumns(payload)
	if len(columns) == 0 {
		return nil, &AdapterError{Code: "VALIDATION_ERROR", Message: "empty payload"}
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = c.placeholder(i + 1)
	}

	if c.dbType == "postgres" {
		query := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
			c.table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
		)
		var id string
		if err := c.db.QueryRowContext(ctx, query, values...).Scan(&id); err != nil {
			return nil, c.sqlError(err)
		}
		return &RecordOutcome{Success: true, ExternalID: id}, nil
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		c.table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)
	res, err := c.db.ExecContext(ctx, query, values...)
	if err != nil {
		return nil, c.sqlError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, c.sqlError(err)
	}
	return &RecordOutcome{Success: true, ExternalID: fmt.Sprintf("%d", id)}, nil
}

func (c *SQLConnector) UpdateRecord(ctx context.Context, externalID string, payload map[string]interface{}) (*RecordOutcome, error) {
	columns, values := sortedColumns(payload)
	if len(columns) == 0 {
		return nil, &AdapterError{Code: "VALIDATION_ERROR", Message: "empty payload"}
	}

	setExprs := make([]string, len(columns))
	for i, col := range columns {
		setExprs[i] = fmt.Sprintf("%s = %s", col, c.placeholder(i+1))
	}
	values = append(values, externalID)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = %s",
		c.table, strings.Join(setExprs, ", "), c.placeholder(len(values)),
	)
	res, err := c.db.ExecContext(ctx, query, values...)
	if err != nil {
		return nil, c.sqlError(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, &AdapterError{Code: "NOT_FOUND", Message: fmt.Sprintf("no row with id %s in %s", externalID, c.table)}
	}
	return &RecordOutcome{Success: true, ExternalID: externalID}, nil
}

func (c *SQLConnector) placeholder(index int) string {
	if c.dbType == "postgres" {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}

// sqlError maps driver failures onto the adapter code vocabulary:
// connection-class failures are retryable, integrity violations are not.
func (c *SQLConnector) sqlError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &AdapterError{Code: "TIMEOUT", Message: err.Error()}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := string(pqErr.Code.Class())
		switch {
		case class == "08": // connection exception
			return &AdapterError{Code: "NETWORK_ERROR", Message: pqErr.Message}
		case class == "23": // integrity constraint violation
			return &AdapterError{Code: "VALIDATION_ERROR", Message: pqErr.Message}
		case class == "57" || class == "58": // operator intervention / system error
			return &AdapterError{Code: "SERVER_ERROR", Message: pqErr.Message}
		}
		return &AdapterError{Code: "BAD_REQUEST", Message: pqErr.Message}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062: // duplicate entry
			return &AdapterError{Code: "CONFLICT", Message: myErr.Message}
		case 1048, 1054, 1364, 1406: // column constraint violations
			return &AdapterError{Code: "VALIDATION_ERROR", Message: myErr.Message}
		}
		return &AdapterError{Code: "SERVER_ERROR", Message: myErr.Message}
	}

	return &AdapterError{Code: "NETWORK_ERROR", Message: err.Error()}
}

func sortedColumns(payload map[string]interface{}) ([]string, []interface{}) {
	columns := make([]string, 0, len(payload))
	for col := range payload {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	values := make([]interface{}, len(columns))
	for i, col := range columns {
		values[i] = payload[col]
	}
	return columns, values
}

func buildConnectionString(dbType string, config map[string]string) (string, error) {
	host := config["host"]
	port := config["port"]
	database := config["database"]
	username := config["user"]
	password := config["password"]

	if host == "" || database == "" {
		return "", fmt.Errorf("missing required connection parameters")
	}

	if dbType == "postgres" {
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, username, password, database,
		), nil
	}

	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true",
		username, password, host, port, database,
	), nil
}
