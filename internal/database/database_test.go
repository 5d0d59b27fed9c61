package database

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mexidense/ppd/internal/config"
)

func validConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:               "db.internal",
		Port:               "5432",
		User:               "ppd",
		Password:           "s3cr:t",
		Name:               "ppd",
		SSLMode:            "require",
		MaxOpenConns:       10,
		MaxIdleConns:       5,
		ConnMaxLifetimeSec: 300,
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := BuildPostgresDSN(validConfig())
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/ppd", u.Path)
	assert.Equal(t, "ppd", u.User.Username())
	pass, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "s3cr:t", pass)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "ppd", u.Query().Get("application_name"))
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))
}

func TestBuildPostgresDSNOptionalParts(t *testing.T) {
	c := validConfig()
	c.Password = ""
	c.SSLMode = ""

	dsn, err := BuildPostgresDSN(c)
	require.NoError(t, err)
	assert.Equal(t, "postgres://ppd@db.internal:5432/ppd?application_name=ppd&connect_timeout=5", dsn)
}

func TestBuildPostgresDSNRequiredFields(t *testing.T) {
	for name, clear := range map[string]func(*config.DatabaseConfig){
		"host": func(c *config.DatabaseConfig) { c.Host = "" },
		"port": func(c *config.DatabaseConfig) { c.Port = "" },
		"user": func(c *config.DatabaseConfig) { c.User = "" },
		"name": func(c *config.DatabaseConfig) { c.Name = "" },
	} {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			clear(&c)
			_, err := BuildPostgresDSN(c)
			assert.ErrorIs(t, err, errIncompleteConfig)
		})
	}
}

func stubOpen(t *testing.T, db *sql.DB, err error) {
	t.Helper()
	orig := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return db, err }
	t.Cleanup(func() { sqlOpen = orig })
}

func TestNewPostgres(t *testing.T) {
	t.Run("pings and applies pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		stubOpen(t, db, nil)
		mock.ExpectPing()

		got, err := NewPostgres(context.Background(), validConfig())
		require.NoError(t, err)
		assert.Equal(t, 10, got.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open error", func(t *testing.T) {
		stubOpen(t, nil, errors.New("open error"))

		got, err := NewPostgres(context.Background(), validConfig())
		assert.EqualError(t, err, "sql open: open error")
		assert.Nil(t, got)
	})

	t.Run("ping error closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		mock.ExpectClose()

		got, err := NewPostgres(context.Background(), validConfig())
		assert.EqualError(t, err, "db ping: ping failed")
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("incomplete config", func(t *testing.T) {
		got, err := NewPostgres(context.Background(), config.DatabaseConfig{})
		assert.ErrorIs(t, err, errIncompleteConfig)
		assert.Nil(t, got)
	})
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	assert.NoError(t, Ping(context.Background(), db))
	assert.EqualError(t, Ping(context.Background(), db), "down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterPoolMetrics(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, db))
	n, err := testutil.GatherAndCount(reg, "go_sql_max_open_connections")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, RegisterPoolMetrics(reg, db), &already)
}
