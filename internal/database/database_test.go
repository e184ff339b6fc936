package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	dsn := fmt.Sprintf("file:database_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := Connect("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"assignments", "questions", "student_submissions", "answers", "scores", "enrollments", "student_groups", "goals", "students"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "dsn")
	require.Error(t, err)
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := Connect("postgres", "")
	require.Error(t, err)
}

func TestConnectNATSDisabled(t *testing.T) {
	conn, err := ConnectNATS("", "test")
	require.NoError(t, err)
	require.Nil(t, conn)
}

func TestConnectRedis(t *testing.T) {
	client, err := ConnectRedis(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, client)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err = ConnectRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NotNil(t, client)
	require.NoError(t, client.Close())

	_, err = ConnectRedis(context.Background(), "not a url")
	require.Error(t, err)
}
