// Copyright 2024-2026 Aiku AI

package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.mau.fi/util/dbutil"

	"github.com/aiku/mattermost-proxybot/pkg/proxytags"
)

// ProxyCandidate is a member with proxy tags, together with the system
// fields needed to repost a message as that member.
type ProxyCandidate struct {
	MemberID   uuid.UUID
	MemberHID  string
	Name       string
	Prefix     string
	Suffix     string
	AvatarURL  string
	SystemID   uuid.UUID
	SystemHID  string
	SystemName string
	SystemTag  string
	SystemIcon string
}

const getProxyCandidatesQuery = `
	SELECT members.id, members.hid, members.name, members.prefix, members.suffix, members.avatar_url,
	       systems.id, systems.hid, systems.name, systems.tag, systems.avatar_url
	FROM accounts
	JOIN systems ON systems.id=accounts.system
	JOIN members ON members.system=systems.id
	WHERE accounts.uid=$1 AND (members.prefix IS NOT NULL OR members.suffix IS NOT NULL)
	ORDER BY members.created, members.hid
`

// GetProxyCandidates returns the members of the system linked to an account
// that have at least one proxy tag.
func (mq *MemberQuery) GetProxyCandidates(ctx context.Context, accountID string) ([]*ProxyCandidate, error) {
	rows, err := mq.GetDB().Query(ctx, getProxyCandidatesQuery, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var candidates []*ProxyCandidate
	for rows.Next() {
		pc, err := (&ProxyCandidate{}).Scan(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, pc)
	}
	return candidates, rows.Err()
}

func (pc *ProxyCandidate) Scan(row dbutil.Scannable) (*ProxyCandidate, error) {
	var prefix, suffix, avatarURL, systemName, systemTag, systemIcon sql.NullString
	err := row.Scan(&pc.MemberID, &pc.MemberHID, &pc.Name, &prefix, &suffix, &avatarURL,
		&pc.SystemID, &pc.SystemHID, &systemName, &systemTag, &systemIcon)
	if err != nil {
		return nil, err
	}
	pc.Prefix = prefix.String
	pc.Suffix = suffix.String
	pc.AvatarURL = avatarURL.String
	pc.SystemName = systemName.String
	pc.SystemTag = systemTag.String
	pc.SystemIcon = systemIcon.String
	return pc, nil
}

func (pc *ProxyCandidate) ProxyTags() proxytags.Tags {
	return proxytags.Tags{Prefix: pc.Prefix, Suffix: pc.Suffix}
}

// EffectiveAvatar is the member avatar, falling back to the system avatar.
func (pc *ProxyCandidate) EffectiveAvatar() string {
	if pc.AvatarURL != "" {
		return pc.AvatarURL
	}
	return pc.SystemIcon
}
