// Copyright 2024-2026 Aiku AI

// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-proxybot/pkg/database"
)

var counter atomic.Int64

// New returns an upgraded, empty SQLite database that is closed when the
// test ends.
func New(t testing.TB) *database.Database {
	t.Helper()
	uri := fmt.Sprintf("file:proxybot_test_%d?mode=memory&cache=shared&_foreign_keys=on", counter.Add(1))
	// One connection keeps the in-memory database alive and serializes access.
	db, err := database.Open("sqlite3", uri, database.PoolConfig{MaxOpenConns: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err = db.Upgrade(context.Background()); err != nil {
		t.Fatalf("upgrade test database: %v", err)
	}
	return db
}
