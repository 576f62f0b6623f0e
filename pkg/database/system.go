// Copyright 2024-2026 Aiku AI

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/util/dbutil"
)

type SystemQuery struct {
	*dbutil.QueryHelper[*System]
}

// System is a group of members sharing a tag and front history.
type System struct {
	ID          uuid.UUID
	HID         string
	Name        string
	Description string
	Tag         string
	AvatarURL   string
	Token       string
	UITZ        string
	Created     time.Time
}

const (
	getSystemBaseQuery = `
		SELECT id, hid, name, description, tag, avatar_url, token, ui_tz, created FROM systems
	`
	getSystemByIDQuery    = getSystemBaseQuery + `WHERE id=$1`
	getSystemByHIDQuery   = getSystemBaseQuery + `WHERE hid=$1`
	getSystemByTokenQuery = getSystemBaseQuery + `WHERE token=$1`

	getSystemByAccountQuery = `
		SELECT systems.id, hid, name, description, tag, avatar_url, token, ui_tz, created
		FROM accounts JOIN systems ON systems.id=accounts.system
		WHERE accounts.uid=$1
	`
	insertSystemQuery = `
		INSERT INTO systems (id, hid, name, description, tag, avatar_url, token, ui_tz, created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	updateSystemQuery = `
		UPDATE systems SET name=$2, description=$3, tag=$4, avatar_url=$5, token=$6, ui_tz=$7
		WHERE id=$1
	`

	deleteSystemQuery      = `DELETE FROM systems WHERE id=$1`
	systemHIDExistsQuery   = `SELECT EXISTS(SELECT 1 FROM systems WHERE hid=$1)`
	linkAccountQuery       = `INSERT INTO accounts (uid, system) VALUES ($1, $2)`
	unlinkAccountQuery     = `DELETE FROM accounts WHERE uid=$1 AND system=$2`
	getSystemAccountsQuery = `SELECT uid FROM accounts WHERE system=$1 ORDER BY uid`
)

func (sq *SystemQuery) GetByID(ctx context.Context, id uuid.UUID) (*System, error) {
	return sq.QueryOne(ctx, getSystemByIDQuery, id)
}

func (sq *SystemQuery) GetByHID(ctx context.Context, hid string) (*System, error) {
	return sq.QueryOne(ctx, getSystemByHIDQuery, hid)
}

func (sq *SystemQuery) GetByToken(ctx context.Context, token string) (*System, error) {
	return sq.QueryOne(ctx, getSystemByTokenQuery, token)
}

// GetByAccount returns the system linked to a platform account, or nil.
func (sq *SystemQuery) GetByAccount(ctx context.Context, accountID string) (*System, error) {
	return sq.QueryOne(ctx, getSystemByAccountQuery, accountID)
}

func (sq *SystemQuery) Insert(ctx context.Context, s *System) error {
	return sq.Exec(ctx, insertSystemQuery, s.ID, s.HID, nullString(s.Name), nullString(s.Description),
		nullString(s.Tag), nullString(s.AvatarURL), nullString(s.Token), s.UITZ, s.Created.UnixMilli())
}

func (sq *SystemQuery) Update(ctx context.Context, s *System) error {
	return sq.Exec(ctx, updateSystemQuery, s.ID, nullString(s.Name), nullString(s.Description),
		nullString(s.Tag), nullString(s.AvatarURL), nullString(s.Token), s.UITZ)
}

func (sq *SystemQuery) Delete(ctx context.Context, id uuid.UUID) error {
	return sq.Exec(ctx, deleteSystemQuery, id)
}

func (sq *SystemQuery) HIDExists(ctx context.Context, hid string) (exists bool, err error) {
	err = sq.GetDB().QueryRow(ctx, systemHIDExistsQuery, hid).Scan(&exists)
	return
}

func (sq *SystemQuery) LinkAccount(ctx context.Context, systemID uuid.UUID, accountID string) error {
	return sq.Exec(ctx, linkAccountQuery, accountID, systemID)
}

func (sq *SystemQuery) UnlinkAccount(ctx context.Context, systemID uuid.UUID, accountID string) error {
	return sq.Exec(ctx, unlinkAccountQuery, accountID, systemID)
}

// GetAccounts lists the platform accounts linked to a system.
func (sq *SystemQuery) GetAccounts(ctx context.Context, systemID uuid.UUID) ([]string, error) {
	rows, err := sq.GetDB().Query(ctx, getSystemAccountsQuery, systemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []string
	for rows.Next() {
		var uid string
		if err = rows.Scan(&uid); err != nil {
			return nil, err
		}
		accounts = append(accounts, uid)
	}
	return accounts, rows.Err()
}

func (s *System) Scan(row dbutil.Scannable) (*System, error) {
	var name, description, tag, avatarURL, token sql.NullString
	var created int64
	err := row.Scan(&s.ID, &s.HID, &name, &description, &tag, &avatarURL, &token, &s.UITZ, &created)
	if err != nil {
		return nil, err
	}
	s.Name = name.String
	s.Description = description.String
	s.Tag = tag.String
	s.AvatarURL = avatarURL.String
	s.Token = token.String
	s.Created = fromMilli(created)
	return s, nil
}

// DisplayName is the system name, or its hid when it has none.
func (s *System) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.HID
}

// Location returns the system's preferred time zone, falling back to UTC.
func (s *System) Location() *time.Location {
	loc, err := time.LoadLocation(s.UITZ)
	if err != nil || s.UITZ == "" {
		return time.UTC
	}
	return loc
}
