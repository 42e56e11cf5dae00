package data

import (
	"errors"

	"github.com/ninjapay/payments-reconciler/db"
)

var (
	ErrRecordNotFound          = errors.New("record not found")
	ErrRecordAlreadyExists     = errors.New("record already exists")
	ErrMismatchNumRowsAffected = errors.New("mismatch number of rows affected")
	ErrMissingInput            = errors.New("missing input")
)

type Models struct {
	Payments         *PaymentModel
	StatusChecks     *StatusCheckModel
	ProviderEvents   *ProviderEventModel
	CRMEvents        *CRMEventModel
	CRMQueue         *CRMQueueModel
	RuntimeLog       *RuntimeLogModel
	DBConnectionPool db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}
	return &Models{
		Payments:         &PaymentModel{dbConnectionPool: dbConnectionPool},
		StatusChecks:     &StatusCheckModel{dbConnectionPool: dbConnectionPool},
		ProviderEvents:   &ProviderEventModel{dbConnectionPool: dbConnectionPool},
		CRMEvents:        &CRMEventModel{dbConnectionPool: dbConnectionPool},
		CRMQueue:         &CRMQueueModel{dbConnectionPool: dbConnectionPool},
		RuntimeLog:       &RuntimeLogModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool: dbConnectionPool,
	}, nil
}
