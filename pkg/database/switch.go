// Copyright 2024-2026 Aiku AI

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/util/dbutil"
)

type SwitchQuery struct {
	*dbutil.QueryHelper[*Switch]
}

// Switch records which members were fronting from Timestamp onwards. An
// empty Members list means nobody was fronting.
type Switch struct {
	ID        uuid.UUID
	SystemID  uuid.UUID
	Timestamp time.Time
	Members   []uuid.UUID
}

const (
	getLatestSwitchesQuery = `
		SELECT id, system, ts FROM switches WHERE system=$1 ORDER BY ts DESC LIMIT $2
	`
	getSwitchMembersQuery = `
		SELECT member FROM switch_members WHERE switch=$1 ORDER BY position
	`

	insertSwitchQuery        = `INSERT INTO switches (id, system, ts) VALUES ($1, $2, $3)`
	insertSwitchMemberQuery  = `INSERT INTO switch_members (switch, position, member) VALUES ($1, $2, $3)`
	moveSwitchQuery          = `UPDATE switches SET ts=$2 WHERE id=$1`
	deleteSwitchQuery        = `DELETE FROM switches WHERE id=$1`
	deleteSwitchMembersQuery = `DELETE FROM switch_members WHERE switch=$1`
)

// Insert stores a switch and its ordered member list in one transaction.
func (sq *SwitchQuery) Insert(ctx context.Context, sw *Switch) error {
	return sq.GetDB().DoTxn(ctx, nil, func(ctx context.Context) error {
		if err := sq.Exec(ctx, insertSwitchQuery, sw.ID, sw.SystemID, sw.Timestamp.UnixMilli()); err != nil {
			return err
		}
		for i, memberID := range sw.Members {
			if err := sq.Exec(ctx, insertSwitchMemberQuery, sw.ID, i, memberID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetLatest returns up to limit switches of a system, newest first, with
// their members loaded.
func (sq *SwitchQuery) GetLatest(ctx context.Context, systemID uuid.UUID, limit int) ([]*Switch, error) {
	switches, err := sq.QueryMany(ctx, getLatestSwitchesQuery, systemID, limit)
	if err != nil {
		return nil, err
	}
	for _, sw := range switches {
		if sw.Members, err = sq.getMembers(ctx, sw.ID); err != nil {
			return nil, err
		}
	}
	return switches, nil
}

func (sq *SwitchQuery) getMembers(ctx context.Context, switchID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := sq.GetDB().Query(ctx, getSwitchMembersQuery, switchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

func (sq *SwitchQuery) Move(ctx context.Context, switchID uuid.UUID, ts time.Time) error {
	return sq.Exec(ctx, moveSwitchQuery, switchID, ts.UnixMilli())
}

func (sq *SwitchQuery) Delete(ctx context.Context, switchID uuid.UUID) error {
	return sq.GetDB().DoTxn(ctx, nil, func(ctx context.Context) error {
		if err := sq.Exec(ctx, deleteSwitchMembersQuery, switchID); err != nil {
			return err
		}
		return sq.Exec(ctx, deleteSwitchQuery, switchID)
	})
}

func (sw *Switch) Scan(row dbutil.Scannable) (*Switch, error) {
	var ts int64
	if err := row.Scan(&sw.ID, &sw.SystemID, &ts); err != nil {
		return nil, err
	}
	sw.Timestamp = fromMilli(ts)
	return sw, nil
}
