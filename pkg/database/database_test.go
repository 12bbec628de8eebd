package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/config"
)

func TestDSNQuotesValues(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "mindcare", Password: "p@ss word's", DBName: "mindcare"}
	assert.Equal(t,
		`host=db port=5432 user=mindcare password='p@ss word\'s' dbname=mindcare sslmode=disable`,
		cfg.DSN())

	cfg.Password = ""
	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "password='' ")
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestDatabases(t *testing.T) {
	cfg := &config.Config{
		Database:       config.DatabaseConfig{DBName: "mindcare"},
		CasbinDatabase: config.DatabaseConfig{DBName: "mindcare"},
	}
	assert.Equal(t, []string{"mindcare"}, Databases(cfg))

	cfg.CasbinDatabase.DBName = "mindcare_casbin"
	assert.Equal(t, []string{"mindcare", "mindcare_casbin"}, Databases(cfg))

	cfg.Server.Databases = []string{"only"}
	assert.Equal(t, []string{"only"}, Databases(cfg))
}

func TestCreateIfMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	lookup := regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`)

	mock.ExpectQuery(lookup).WithArgs("mindcare").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	created, err := createIfMissing(ctx, db, "mindcare")
	require.NoError(t, err)
	assert.False(t, created)

	mock.ExpectQuery(lookup).WithArgs(`odd"name`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "odd""name"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = createIfMissing(ctx, db, `odd"name`)
	require.NoError(t, err)
	assert.True(t, created)

	mock.ExpectQuery(lookup).WithArgs("broken").WillReturnError(errors.New("conn reset"))
	_, err = createIfMissing(ctx, db, "broken")
	assert.ErrorContains(t, err, "lookup")

	assert.NoError(t, mock.ExpectationsWereMet())
}
