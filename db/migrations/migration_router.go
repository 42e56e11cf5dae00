package migrations

import (
	"net/http"

	reconcilermigrations "github.com/ninjapay/payments-reconciler/db/migrations/reconciler-migrations"
)

type MigrationRouter struct {
	TableName string
	FS        http.FileSystem
}

var ReconcilerMigrationRouter = MigrationRouter{TableName: "reconciler_migrations", FS: http.FS(reconcilermigrations.FS)}
