package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninjapay/payments-reconciler/db/dbtest"
)

func TestOpen_OpenDBConnectionPool(t *testing.T) {
	db := dbtest.Postgres(t)
	defer db.Close()

	dbConnectionPool, err := OpenDBConnectionPool(db.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	assert.Equal(t, "postgres", dbConnectionPool.DriverName())

	ctx := context.Background()
	err = dbConnectionPool.Ping(ctx)
	require.NoError(t, err)
}

func TestRunInTransaction_commitsOnSuccess(t *testing.T) {
	db := dbtest.Postgres(t)
	defer db.Close()

	dbConnectionPool, err := OpenDBConnectionPool(db.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	_, err = dbConnectionPool.ExecContext(ctx, "CREATE TABLE tx_probe (id INT PRIMARY KEY)")
	require.NoError(t, err)

	err = RunInTransaction(ctx, dbConnectionPool, nil, func(dbTx DBTransaction) error {
		_, insertErr := dbTx.ExecContext(ctx, "INSERT INTO tx_probe (id) VALUES (1)")
		return insertErr
	})
	require.NoError(t, err)

	var count int
	err = dbConnectionPool.GetContext(ctx, &count, "SELECT COUNT(*) FROM tx_probe")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunInTransaction_rollsBackOnError(t *testing.T) {
	db := dbtest.Postgres(t)
	defer db.Close()

	dbConnectionPool, err := OpenDBConnectionPool(db.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	_, err = dbConnectionPool.ExecContext(ctx, "CREATE TABLE tx_probe (id INT PRIMARY KEY)")
	require.NoError(t, err)

	errBoom := errors.New("boom")
	err = RunInTransaction(ctx, dbConnectionPool, nil, func(dbTx DBTransaction) error {
		_, insertErr := dbTx.ExecContext(ctx, "INSERT INTO tx_probe (id) VALUES (1)")
		require.NoError(t, insertErr)
		return errBoom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, IsTransactionExecutionError(err))

	var count int
	err = dbConnectionPool.GetContext(ctx, &count, "SELECT COUNT(*) FROM tx_probe")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRunInTransactionWithResult(t *testing.T) {
	db := dbtest.Postgres(t)
	defer db.Close()

	dbConnectionPool, err := OpenDBConnectionPool(db.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	got, err := RunInTransactionWithResult(ctx, dbConnectionPool, nil, func(dbTx DBTransaction) (int, error) {
		var one int
		getErr := dbTx.GetContext(ctx, &one, "SELECT 1")
		return one, getErr
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}
