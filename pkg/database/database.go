// Copyright 2024-2026 Aiku AI

// Package database stores systems, members, switches, proxied messages and
// the per-channel webhook cache.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"

	"github.com/aiku/mattermost-proxybot/pkg/database/upgrades"
)

// Owner is recorded in the database so two different programs can't share it.
const Owner = "mattermost-proxybot"

type Database struct {
	*dbutil.Database

	System  *SystemQuery
	Member  *MemberQuery
	Switch  *SwitchQuery
	Message *MessageQuery
	Webhook *WebhookQuery
	Server  *ServerQuery
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
}

// Open connects to the database and wraps it. It does not run upgrades.
func Open(dialect, uri string, pool PoolConfig, log zerolog.Logger) (*Database, error) {
	raw, err := dbutil.NewWithDialect(uri, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if pool.MaxOpenConns > 0 {
		raw.RawDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		raw.RawDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxIdleTime > 0 {
		raw.RawDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}
	raw.Owner = Owner
	raw.Log = dbutil.ZeroLogger(log.With().Str("component", "database").Logger())
	return New(raw), nil
}

func New(db *dbutil.Database) *Database {
	db.UpgradeTable = upgrades.Table
	return &Database{
		Database: db,
		System: &SystemQuery{dbutil.MakeQueryHelper(db, func(_ *dbutil.QueryHelper[*System]) *System {
			return &System{}
		})},
		Member: &MemberQuery{dbutil.MakeQueryHelper(db, func(_ *dbutil.QueryHelper[*Member]) *Member {
			return &Member{}
		})},
		Switch: &SwitchQuery{dbutil.MakeQueryHelper(db, func(_ *dbutil.QueryHelper[*Switch]) *Switch {
			return &Switch{}
		})},
		Message: &MessageQuery{dbutil.MakeQueryHelper(db, func(_ *dbutil.QueryHelper[*MessageInfo]) *MessageInfo {
			return &MessageInfo{}
		})},
		Webhook: &WebhookQuery{dbutil.MakeQueryHelper(db, func(_ *dbutil.QueryHelper[*ChannelWebhook]) *ChannelWebhook {
			return &ChannelWebhook{}
		})},
		Server: &ServerQuery{db: db},
	}
}

// Upgrade brings the schema to the latest revision.
func (db *Database) Upgrade(ctx context.Context) error {
	if err := db.Database.Upgrade(ctx); err != nil {
		return fmt.Errorf("failed to upgrade database: %w", err)
	}
	return nil
}

// Empty strings are stored as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fromMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
