// Copyright 2024-2026 Aiku AI

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/util/dbutil"

	"github.com/aiku/mattermost-proxybot/pkg/proxytags"
)

type MemberQuery struct {
	*dbutil.QueryHelper[*Member]
}

type Member struct {
	ID          uuid.UUID
	HID         string
	SystemID    uuid.UUID
	Name        string
	Color       string
	AvatarURL   string
	Birthday    string
	Pronouns    string
	Description string
	Prefix      string
	Suffix      string
	Created     time.Time
}

const (
	getMemberBaseQuery = `
		SELECT id, hid, system, name, color, avatar_url, birthday, pronouns, description, prefix, suffix, created
		FROM members
	`
	getMemberByIDQuery      = getMemberBaseQuery + `WHERE id=$1`
	getMemberByHIDQuery     = getMemberBaseQuery + `WHERE hid=$1`
	getMemberByNameQuery    = getMemberBaseQuery + `WHERE system=$1 AND LOWER(name)=LOWER($2)`
	getMembersSystemQuery   = getMemberBaseQuery + `WHERE system=$1 ORDER BY created, hid`
	memberHIDExistsQuery    = `SELECT EXISTS(SELECT 1 FROM members WHERE hid=$1)`
	countSystemMembersQuery = `SELECT COUNT(*) FROM members WHERE system=$1`

	insertMemberQuery = `
		INSERT INTO members (id, hid, system, name, color, avatar_url, birthday, pronouns, description, prefix, suffix, created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	updateMemberQuery = `
		UPDATE members
		SET name=$2, color=$3, avatar_url=$4, birthday=$5, pronouns=$6, description=$7, prefix=$8, suffix=$9
		WHERE id=$1
	`
	deleteMemberQuery = `DELETE FROM members WHERE id=$1`
)

func (mq *MemberQuery) GetByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	return mq.QueryOne(ctx, getMemberByIDQuery, id)
}

func (mq *MemberQuery) GetByHID(ctx context.Context, hid string) (*Member, error) {
	return mq.QueryOne(ctx, getMemberByHIDQuery, hid)
}

// GetByName finds a member of a system by case-insensitive name.
func (mq *MemberQuery) GetByName(ctx context.Context, systemID uuid.UUID, name string) (*Member, error) {
	return mq.QueryOne(ctx, getMemberByNameQuery, systemID, name)
}

func (mq *MemberQuery) GetBySystem(ctx context.Context, systemID uuid.UUID) ([]*Member, error) {
	return mq.QueryMany(ctx, getMembersSystemQuery, systemID)
}

func (mq *MemberQuery) HIDExists(ctx context.Context, hid string) (exists bool, err error) {
	err = mq.GetDB().QueryRow(ctx, memberHIDExistsQuery, hid).Scan(&exists)
	return
}

func (mq *MemberQuery) CountBySystem(ctx context.Context, systemID uuid.UUID) (count int, err error) {
	err = mq.GetDB().QueryRow(ctx, countSystemMembersQuery, systemID).Scan(&count)
	return
}

func (mq *MemberQuery) Insert(ctx context.Context, m *Member) error {
	return mq.Exec(ctx, insertMemberQuery, m.sqlVariables()...)
}

func (mq *MemberQuery) Update(ctx context.Context, m *Member) error {
	return mq.Exec(ctx, updateMemberQuery, m.ID, m.Name, nullString(m.Color), nullString(m.AvatarURL),
		nullString(m.Birthday), nullString(m.Pronouns), nullString(m.Description),
		nullString(m.Prefix), nullString(m.Suffix))
}

func (mq *MemberQuery) Delete(ctx context.Context, id uuid.UUID) error {
	return mq.Exec(ctx, deleteMemberQuery, id)
}

func (m *Member) sqlVariables() []any {
	return []any{
		m.ID, m.HID, m.SystemID, m.Name, nullString(m.Color), nullString(m.AvatarURL),
		nullString(m.Birthday), nullString(m.Pronouns), nullString(m.Description),
		nullString(m.Prefix), nullString(m.Suffix), m.Created.UnixMilli(),
	}
}

func (m *Member) Scan(row dbutil.Scannable) (*Member, error) {
	var color, avatarURL, birthday, pronouns, description, prefix, suffix sql.NullString
	var created int64
	err := row.Scan(&m.ID, &m.HID, &m.SystemID, &m.Name, &color, &avatarURL, &birthday, &pronouns,
		&description, &prefix, &suffix, &created)
	if err != nil {
		return nil, err
	}
	m.Color = color.String
	m.AvatarURL = avatarURL.String
	m.Birthday = birthday.String
	m.Pronouns = pronouns.String
	m.Description = description.String
	m.Prefix = prefix.String
	m.Suffix = suffix.String
	m.Created = fromMilli(created)
	return m, nil
}

func (m *Member) ProxyTags() proxytags.Tags {
	return proxytags.Tags{Prefix: m.Prefix, Suffix: m.Suffix}
}
