// Copyright 2024-2026 Aiku AI

package proxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/metrics"
	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

const (
	proxiedColor = "#1f8ce6"
	deletedColor = "#992d22"
)

// ChannelLogger posts audit records of proxied and deleted messages to a
// team's log channel. It never fails the operation that triggered it.
type ChannelLogger struct {
	db      *database.Database
	client  Client
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewChannelLogger(db *database.Database, client Client, m *metrics.Metrics, log zerolog.Logger) *ChannelLogger {
	return &ChannelLogger{
		db:      db,
		client:  client,
		metrics: m,
		log:     log.With().Str("component", "channel_logger").Logger(),
	}
}

// ProxiedEvent describes a message that was just reposted.
type ProxiedEvent struct {
	Channel   *platform.Channel
	SenderID  string
	Candidate *database.ProxyCandidate
	Content   string
	Sent      *platform.SentMessage
}

// DeletedEvent describes a proxied message that was removed.
type DeletedEvent struct {
	ChannelID string
	Info      *database.MessageInfo
	Content   string
}

func (cl *ChannelLogger) LogProxied(ctx context.Context, evt *ProxiedEvent) {
	log := cl.log.With().Str("post_id", evt.Sent.ID).Logger()
	logChannel, err := cl.db.Server.GetLogChannel(ctx, evt.Channel.TeamID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to get log channel")
		return
	} else if logChannel == "" {
		return
	}

	sender := evt.SenderID
	if user, err := cl.client.GetUser(ctx, evt.SenderID); err != nil {
		log.Debug().Err(err).Str("user_id", evt.SenderID).Msg("Failed to get sender for log record")
	} else {
		sender = fmt.Sprintf("@%s (%s)", user.Username, user.ID)
	}
	c := evt.Candidate
	embed := &platform.Embed{
		Color:      proxiedColor,
		AuthorName: authorName(evt.Channel.Name, c.Name, c.SystemName),
		AuthorIcon: c.EffectiveAvatar(),
		Text:       evt.Content,
		Footer: fmt.Sprintf("System ID: %s | Member ID: %s | Sender: %s | Message ID: %s",
			c.SystemHID, c.MemberHID, sender, evt.Sent.ID),
		Timestamp: evt.Sent.CreatedAt,
	}
	if len(evt.Sent.Attachments) > 0 {
		embed.ThumbURL = cl.client.AttachmentURL(evt.Sent.Attachments[0])
	}
	cl.post(ctx, log, "proxied", logChannel, &platform.OutgoingMessage{
		Content: cl.client.MessageLink(evt.Sent.ID),
		Embed:   embed,
	})
}

func (cl *ChannelLogger) LogDeleted(ctx context.Context, evt *DeletedEvent) {
	log := cl.log.With().Str("post_id", evt.Info.MessageID).Logger()
	channel, err := cl.client.GetChannel(ctx, evt.ChannelID)
	if err != nil {
		log.Warn().Err(err).Str("channel_id", evt.ChannelID).Msg("Failed to get channel of deleted message")
		return
	}
	logChannel, err := cl.db.Server.GetLogChannel(ctx, channel.TeamID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to get log channel")
		return
	} else if logChannel == "" {
		return
	}

	content := evt.Content
	if content == "" {
		content = DeletedPlaceholder
	}
	info := evt.Info
	cl.post(ctx, log, "deleted", logChannel, &platform.OutgoingMessage{
		Embed: &platform.Embed{
			Color:      deletedColor,
			AuthorName: authorName(channel.Name, info.MemberName, info.SystemName),
			AuthorIcon: info.MemberAvatarURL,
			Text:       content,
			Footer: fmt.Sprintf("System ID: %s | Member ID: %s | Message ID: %s",
				info.SystemHID, info.MemberHID, info.MessageID),
			Timestamp: time.Now(),
		},
	})
}

func (cl *ChannelLogger) post(ctx context.Context, log zerolog.Logger, kind, channelID string, msg *platform.OutgoingMessage) {
	_, err := cl.client.SendMessage(ctx, channelID, msg)
	switch {
	case err == nil:
		cl.metrics.LogPosts.WithLabelValues(kind, "ok").Inc()
	case errors.Is(err, platform.ErrForbidden):
		cl.metrics.LogPosts.WithLabelValues(kind, "forbidden").Inc()
		log.Warn().Err(err).Str("log_channel_id", channelID).Msg("No permission to post in log channel")
	default:
		cl.metrics.LogPosts.WithLabelValues(kind, "error").Inc()
		log.Warn().Err(err).Str("log_channel_id", channelID).Msg("Failed to post to log channel")
	}
}

func authorName(channelName, memberName, systemName string) string {
	name := fmt.Sprintf("~%s: %s", channelName, memberName)
	if systemName != "" {
		name += fmt.Sprintf(" (%s)", systemName)
	}
	return name
}
