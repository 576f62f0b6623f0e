// Copyright 2024-2026 Aiku AI

package proxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/metrics"
	"github.com/aiku/mattermost-proxybot/pkg/platform"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

var errCannotDeleteProxied = usererr.New(usererr.Permission,
	"I don't have permission to delete that message. Ask an administrator to check the bot account's permissions.")

// Deleter removes proxied messages and their tracking rows.
type Deleter struct {
	db      *database.Database
	client  Client
	logger  *ChannelLogger
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewDeleter(db *database.Database, client Client, logger *ChannelLogger, m *metrics.Metrics, log zerolog.Logger) *Deleter {
	return &Deleter{
		db:      db,
		client:  client,
		logger:  logger,
		metrics: m,
		log:     log.With().Str("component", "deleter").Logger(),
	}
}

// TryDelete deletes a proxied message on behalf of the account that
// originally sent it. It returns false when the message isn't tracked or
// was sent by someone else; the two cases are indistinguishable.
func (d *Deleter) TryDelete(ctx context.Context, messageID, requesterID string) (bool, error) {
	info, err := d.db.Message.GetBySender(ctx, messageID, requesterID)
	if err != nil {
		return false, fmt.Errorf("failed to get proxied message: %w", err)
	} else if info == nil {
		return false, nil
	}
	log := d.log.With().Str("post_id", messageID).Str("user_id", requesterID).Logger()

	err = d.client.DeleteMessage(ctx, info.ChannelID, messageID)
	switch {
	case err == nil:
	case errors.Is(err, platform.ErrNotFound):
		log.Debug().Msg("Proxied message was already gone")
	case errors.Is(err, platform.ErrForbidden):
		return false, errCannotDeleteProxied.WithCause(err)
	default:
		return false, fmt.Errorf("failed to delete proxied message: %w", err)
	}
	_, err = d.forget(ctx, log, info, metrics.DeleteSelfService, "")
	return true, err
}

// HandleDeleted cleans up after a proxied message that has already been
// removed from the platform by any means. content is the message text as
// reported by the platform, if known. It returns false when the message
// isn't tracked or another delete already cleaned it up.
func (d *Deleter) HandleDeleted(ctx context.Context, messageID, content string) (bool, error) {
	info, err := d.db.Message.Get(ctx, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to get proxied message: %w", err)
	} else if info == nil {
		return false, nil
	}
	log := d.log.With().Str("post_id", messageID).Logger()
	return d.forget(ctx, log, info, metrics.DeleteRaw, content)
}

// forget removes the tracking row and records the deletion. A reaction
// delete triggers a platform delete event for the same message, so only the
// call that actually removed the row counts and logs it.
func (d *Deleter) forget(ctx context.Context, log zerolog.Logger, info *database.MessageInfo, mode, content string) (bool, error) {
	removed, err := d.db.Message.Delete(ctx, info.MessageID)
	if err != nil {
		return false, fmt.Errorf("failed to delete proxied message row: %w", err)
	} else if !removed {
		log.Debug().Str("mode", mode).Msg("Proxied message was already cleaned up")
		return false, nil
	}
	d.metrics.Deletions.WithLabelValues(mode).Inc()
	log.Debug().Str("mode", mode).Msg("Removed proxied message")
	if content == "" {
		content = info.Content
	}
	d.logger.LogDeleted(ctx, &DeletedEvent{
		ChannelID: info.ChannelID,
		Info:      info,
		Content:   content,
	})
	return true, nil
}
