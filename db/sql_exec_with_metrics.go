package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/internal/monitor"
)

// SQLExecuterWithMetrics is a wrapper around SQLExecuter that records query durations on the monitor service.
type SQLExecuterWithMetrics struct {
	SQLExecuter
	monitorServiceInterface monitor.MonitorServiceInterface
}

func NewSQLExecuterWithMetrics(sqlExec SQLExecuter, monitorServiceInterface monitor.MonitorServiceInterface) (*SQLExecuterWithMetrics, error) {
	if sqlExec == nil {
		return nil, fmt.Errorf("sqlExec cannot be nil")
	}

	if monitorServiceInterface == nil {
		return nil, fmt.Errorf("monitorServiceInterface cannot be nil")
	}

	return &SQLExecuterWithMetrics{
		SQLExecuter:             sqlExec,
		monitorServiceInterface: monitorServiceInterface,
	}, nil
}

// make sure *SQLExecuterWithMetrics implements SQLExecuter:
var _ SQLExecuter = (*SQLExecuterWithMetrics)(nil)

type QueryType string

const (
	SelectQueryType    QueryType = "SELECT"
	InsertQueryType    QueryType = "INSERT"
	UpdateQueryType    QueryType = "UPDATE"
	DeleteQueryType    QueryType = "DELETE"
	UndefinedQueryType QueryType = "UNDEFINED"
)

func getQueryType(query string) QueryType {
	words := strings.Fields(strings.TrimSpace(query))
	if len(words) == 0 {
		return UndefinedQueryType
	}

	switch QueryType(strings.ToUpper(words[0])) {
	case SelectQueryType:
		return SelectQueryType
	case InsertQueryType:
		return InsertQueryType
	case UpdateQueryType:
		return UpdateQueryType
	case DeleteQueryType:
		return DeleteQueryType
	default:
		return UndefinedQueryType
	}
}

func getMetricTag(err error) monitor.MetricTag {
	if err != nil {
		return monitor.FailureQueryDurationTag
	}
	return monitor.SuccessfulQueryDurationTag
}

func (sqlExec *SQLExecuterWithMetrics) monitorDBQueryDuration(ctx context.Context, duration time.Duration, query string, err error) {
	labels := monitor.DBQueryLabels{
		QueryType: string(getQueryType(query)),
	}

	monitorErr := sqlExec.monitorServiceInterface.MonitorDBQueryDuration(duration, getMetricTag(err), labels)
	if monitorErr != nil {
		log.WithContext(ctx).Errorf("Error trying to monitor db query duration: %s", monitorErr)
	}
}

func (sqlExec *SQLExecuterWithMetrics) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	then := time.Now()

	result, err := sqlExec.SQLExecuter.ExecContext(ctx, query, args...)

	duration := time.Since(then)
	sqlExec.monitorDBQueryDuration(ctx, duration, query, err)

	return result, err
}

func (sqlExec *SQLExecuterWithMetrics) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	then := time.Now()

	err := sqlExec.SQLExecuter.GetContext(ctx, dest, query, args...)

	duration := time.Since(then)
	sqlExec.monitorDBQueryDuration(ctx, duration, query, err)

	return err
}

func (sqlExec *SQLExecuterWithMetrics) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	then := time.Now()

	err := sqlExec.SQLExecuter.SelectContext(ctx, dest, query, args...)

	duration := time.Since(then)
	sqlExec.monitorDBQueryDuration(ctx, duration, query, err)

	return err
}

func (sqlExec *SQLExecuterWithMetrics) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	then := time.Now()

	rows, err := sqlExec.SQLExecuter.QueryContext(ctx, query, args...)

	duration := time.Since(then)
	sqlExec.monitorDBQueryDuration(ctx, duration, query, err)

	return rows, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	then := time.Now()

	rows, err := sqlExec.SQLExecuter.QueryxContext(ctx, query, args...)

	duration := time.Since(then)
	sqlExec.monitorDBQueryDuration(ctx, duration, query, err)

	return rows, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	then := time.Now()

	row := sqlExec.SQLExecuter.QueryRowxContext(ctx, query, args...)

	duration := time.Since(then)
	sqlExec.monitorDBQueryDuration(ctx, duration, query, row.Err())

	return row
}

func (sqlExec *SQLExecuterWithMetrics) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	then := time.Now()

	stmt, err := sqlExec.SQLExecuter.PrepareContext(ctx, query)

	duration := time.Since(then)
	sqlExec.monitorDBQueryDuration(ctx, duration, query, err)

	return stmt, err
}
