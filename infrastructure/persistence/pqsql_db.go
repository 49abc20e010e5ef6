package persistence

import (
	"database/sql"
	"time"

	"autopost/infrastructure/configuration"
	"autopost/infrastructure/logger"

	_ "github.com/lib/pq"
)

func NewPostgreSQLDB() (*sql.DB, error) {
	psql := configuration.C.Database.Psql
	db, err := sql.Open("postgres", psql.DSN())
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while opening PostgreSQL connection")
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while pinging PostgreSQL")
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
