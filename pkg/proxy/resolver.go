// Copyright 2024-2026 Aiku AI

package proxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/metrics"
	"github.com/aiku/mattermost-proxybot/pkg/platform"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

// WebhookResolver hands out the webhook used to repost messages in a channel,
// creating one the first time a channel needs it.
type WebhookResolver struct {
	db        *database.Database
	hooks     platform.Webhooks
	name      string
	botUserID string
	metrics   *metrics.Metrics
	log       zerolog.Logger

	inflight singleflight.Group
}

func NewWebhookResolver(db *database.Database, hooks platform.Webhooks, name, botUserID string, m *metrics.Metrics, log zerolog.Logger) *WebhookResolver {
	return &WebhookResolver{
		db:        db,
		hooks:     hooks,
		name:      name,
		botUserID: botUserID,
		metrics:   m,
		log:       log.With().Str("component", "webhook_resolver").Logger(),
	}
}

// Resolve returns the cached webhook for a channel. On a cache miss it reuses
// a webhook the bot created earlier or creates a new one, and caches it.
// Cached webhooks are not checked for liveness here.
func (wr *WebhookResolver) Resolve(ctx context.Context, channelID string) (*platform.Webhook, error) {
	cached, err := wr.db.Webhook.Get(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cached webhook: %w", err)
	} else if cached != nil {
		return toPlatformWebhook(cached), nil
	}
	// Concurrent misses in the same channel share one lookup so only one
	// webhook gets created.
	res, err, _ := wr.inflight.Do(channelID, func() (any, error) {
		return wr.fetchOrCreate(ctx, channelID)
	})
	if err != nil {
		return nil, err
	}
	return res.(*platform.Webhook), nil
}

// Invalidate forgets the cached webhook of a channel.
func (wr *WebhookResolver) Invalidate(ctx context.Context, channelID string) error {
	if err := wr.db.Webhook.Delete(ctx, channelID); err != nil {
		return fmt.Errorf("failed to delete cached webhook: %w", err)
	}
	return nil
}

func (wr *WebhookResolver) fetchOrCreate(ctx context.Context, channelID string) (*platform.Webhook, error) {
	log := wr.log.With().Str("channel_id", channelID).Logger()
	var hook *platform.Webhook
	err := wr.db.DoTxn(ctx, nil, func(ctx context.Context) error {
		cached, err := wr.db.Webhook.Get(ctx, channelID)
		if err != nil {
			return fmt.Errorf("failed to get cached webhook: %w", err)
		} else if cached != nil {
			hook = toPlatformWebhook(cached)
			return nil
		}

		hook, err = wr.findExisting(ctx, channelID)
		if err != nil {
			return err
		}
		if hook != nil {
			log.Debug().Str("webhook_id", hook.ID).Msg("Reusing existing webhook")
		} else {
			hook, err = wr.hooks.CreateWebhook(ctx, channelID, wr.name)
			if err != nil {
				return classifyWebhookError(err, "create")
			}
			wr.metrics.WebhookCreations.Inc()
			log.Info().Str("webhook_id", hook.ID).Msg("Created webhook")
		}

		err = wr.db.Webhook.Insert(ctx, &database.ChannelWebhook{
			ChannelID: channelID,
			WebhookID: hook.ID,
			Token:     hook.Token,
		})
		if err != nil {
			return fmt.Errorf("failed to cache webhook: %w", err)
		}
		// Another process may have cached a different webhook first.
		winner, err := wr.db.Webhook.Get(ctx, channelID)
		if err != nil {
			return fmt.Errorf("failed to read back cached webhook: %w", err)
		} else if winner != nil && winner.WebhookID != hook.ID {
			hook = toPlatformWebhook(winner)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hook, nil
}

func (wr *WebhookResolver) findExisting(ctx context.Context, channelID string) (*platform.Webhook, error) {
	hooks, err := wr.hooks.ListWebhooks(ctx, channelID)
	if err != nil {
		return nil, classifyWebhookError(err, "list")
	}
	for _, hook := range hooks {
		if hook.ChannelID == channelID && hook.CreatorID == wr.botUserID {
			return hook, nil
		}
	}
	return nil, nil
}

func classifyWebhookError(err error, action string) error {
	switch {
	case errors.Is(err, platform.ErrForbidden):
		return usererr.ErrCannotManageWebhooks.WithCause(err)
	case errors.Is(err, platform.ErrWebhookLimit):
		return usererr.ErrWebhookLimit.WithCause(err)
	default:
		return fmt.Errorf("failed to %s webhooks: %w", action, err)
	}
}

func toPlatformWebhook(wh *database.ChannelWebhook) *platform.Webhook {
	return &platform.Webhook{
		ID:        wh.WebhookID,
		Token:     wh.Token,
		ChannelID: wh.ChannelID,
	}
}
