// Copyright 2024-2026 Aiku AI

package database

import (
	"context"
	"database/sql"
	"errors"

	"go.mau.fi/util/dbutil"
)

// ServerQuery holds per-team settings.
type ServerQuery struct {
	db *dbutil.Database
}

const (
	getLogChannelQuery = `SELECT log_channel FROM servers WHERE id=$1`
	setLogChannelQuery = `
		INSERT INTO servers (id, log_channel) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET log_channel=excluded.log_channel
	`
)

// GetLogChannel returns the team's log channel, or "" when none is set.
func (sq *ServerQuery) GetLogChannel(ctx context.Context, teamID string) (string, error) {
	var channel sql.NullString
	err := sq.db.QueryRow(ctx, getLogChannelQuery, teamID).Scan(&channel)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	return channel.String, nil
}

// SetLogChannel sets the team's log channel. An empty channelID clears it.
func (sq *ServerQuery) SetLogChannel(ctx context.Context, teamID, channelID string) error {
	_, err := sq.db.Exec(ctx, setLogChannelQuery, teamID, nullString(channelID))
	return err
}
