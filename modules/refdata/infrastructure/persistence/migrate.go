package persistence

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate applies the embedded schema migrations. goose runs over
// database/sql, so the pgx connection config is bridged through the
// stdlib adapter.
func Migrate(ctx context.Context, dsn string, log *logrus.Logger) error {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return err
	}
	db := stdlib.OpenDB(*cfg)
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("closing migration connection")
		}
	}()

	goose.SetBaseFS(schemaFS)
	goose.SetLogger(gooseLogger{log})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "schema")
}

type gooseLogger struct {
	log *logrus.Logger
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) { g.log.Fatalf(format, v...) }
func (g gooseLogger) Printf(format string, v ...interface{}) { g.log.Infof(format, v...) }
