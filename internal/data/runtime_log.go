package data

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ninjapay/payments-reconciler/db"
)

type RuntimeEventType string

const (
	StartupRuntimeEventType   RuntimeEventType = "STARTUP"
	ShutdownRuntimeEventType  RuntimeEventType = "SHUTDOWN"
	HeartbeatRuntimeEventType RuntimeEventType = "HEARTBEAT"
	LoopErrorRuntimeEventType RuntimeEventType = "LOOP_ERROR"
)

// RuntimeEvent is one lifecycle record of a running service instance.
type RuntimeEvent struct {
	ID         int64            `json:"id" db:"id"`
	InstanceID string           `json:"instance_id" db:"instance_id"`
	HostName   string           `json:"host_name" db:"host_name"`
	ProcessID  int              `json:"process_id" db:"process_id"`
	EventType  RuntimeEventType `json:"event_type" db:"event_type"`
	Payload    JSONMap          `json:"payload,omitempty" db:"payload"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

type RuntimeLogModel struct {
	dbConnectionPool db.DBConnectionPool
}

// Insert appends a lifecycle event, stamping it with the current host name
// and process ID.
func (m *RuntimeLogModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, instanceID string, eventType RuntimeEventType, payload JSONMap) error {
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "unknown"
	}

	query := `
		INSERT INTO payments.service_runtime_log (
			instance_id,
			host_name,
			process_id,
			event_type,
			payload
		) VALUES ($1, $2, $3, $4, $5)
		`

	_, err = sqlExec.ExecContext(ctx, query, instanceID, hostName, os.Getpid(), eventType, payload)
	if err != nil {
		return fmt.Errorf("inserting %s runtime event: %w", eventType, err)
	}

	return nil
}

// GetAllForInstance returns the lifecycle events written by one instance,
// oldest first.
func (m *RuntimeLogModel) GetAllForInstance(ctx context.Context, sqlExec db.SQLExecuter, instanceID string) ([]RuntimeEvent, error) {
	events := make([]RuntimeEvent, 0)

	query := `
		SELECT
			id,
			instance_id,
			host_name,
			process_id,
			event_type,
			payload,
			created_at
		FROM payments.service_runtime_log
		WHERE instance_id = $1
		ORDER BY created_at ASC, id ASC
		`

	err := sqlExec.SelectContext(ctx, &events, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("getting runtime events for instance %s: %w", instanceID, err)
	}

	return events, nil
}
