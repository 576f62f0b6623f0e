// Copyright 2024-2026 Aiku AI

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/util/dbutil"
)

type MessageQuery struct {
	*dbutil.QueryHelper[*MessageInfo]
}

// ProxiedMessage maps a reposted message to the member it was posted as and
// the account that originally sent it.
type ProxiedMessage struct {
	MessageID string
	ChannelID string
	MemberID  uuid.UUID
	SenderID  string
	Content   string
	Created   time.Time
}

// MessageInfo is a ProxiedMessage joined with its member and system.
type MessageInfo struct {
	ProxiedMessage

	MemberHID       string
	MemberName      string
	MemberAvatarURL string
	MemberColor     string
	SystemID        uuid.UUID
	SystemHID       string
	SystemName      string
	SystemTag       string
}

const (
	getMessageInfoBaseQuery = `
		SELECT messages.mid, messages.channel, messages.member, messages.sender, messages.content, messages.created,
		       members.hid, members.name, members.avatar_url, members.color,
		       systems.id, systems.hid, systems.name, systems.tag
		FROM messages
		JOIN members ON members.id=messages.member
		JOIN systems ON systems.id=members.system
	`
	getMessageInfoQuery         = getMessageInfoBaseQuery + `WHERE messages.mid=$1`
	getMessageInfoBySenderQuery = getMessageInfoBaseQuery + `WHERE messages.mid=$1 AND messages.sender=$2`

	insertMessageQuery = `
		INSERT INTO messages (mid, channel, member, sender, content, created) VALUES ($1, $2, $3, $4, $5, $6)
	`
	deleteMessageQuery = `DELETE FROM messages WHERE mid=$1`
)

// Get looks up a proxied message by id. It returns nil when the message is
// not tracked.
func (mq *MessageQuery) Get(ctx context.Context, messageID string) (*MessageInfo, error) {
	return mq.QueryOne(ctx, getMessageInfoQuery, messageID)
}

// GetBySender looks up a proxied message that was originally sent by
// senderID. A message sent by someone else looks exactly like a missing one.
func (mq *MessageQuery) GetBySender(ctx context.Context, messageID, senderID string) (*MessageInfo, error) {
	return mq.QueryOne(ctx, getMessageInfoBySenderQuery, messageID, senderID)
}

func (mq *MessageQuery) Insert(ctx context.Context, msg *ProxiedMessage) error {
	return mq.Exec(ctx, insertMessageQuery, msg.MessageID, msg.ChannelID, msg.MemberID, msg.SenderID,
		msg.Content, msg.Created.UnixMilli())
}

// Delete removes the tracking row and reports whether this call removed it.
// Concurrent deletes of the same message see true exactly once.
func (mq *MessageQuery) Delete(ctx context.Context, messageID string) (bool, error) {
	res, err := mq.GetDB().Exec(ctx, deleteMessageQuery, messageID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (mi *MessageInfo) Scan(row dbutil.Scannable) (*MessageInfo, error) {
	var avatarURL, color, systemName, systemTag sql.NullString
	var created int64
	err := row.Scan(&mi.MessageID, &mi.ChannelID, &mi.MemberID, &mi.SenderID, &mi.Content, &created,
		&mi.MemberHID, &mi.MemberName, &avatarURL, &color,
		&mi.SystemID, &mi.SystemHID, &systemName, &systemTag)
	if err != nil {
		return nil, err
	}
	mi.Created = fromMilli(created)
	mi.MemberAvatarURL = avatarURL.String
	mi.MemberColor = color.String
	mi.SystemName = systemName.String
	mi.SystemTag = systemTag.String
	return mi, nil
}
