// Copyright 2024-2026 Aiku AI

package database

import (
	"context"

	"go.mau.fi/util/dbutil"
)

type WebhookQuery struct {
	*dbutil.QueryHelper[*ChannelWebhook]
}

// ChannelWebhook caches the webhook used to repost messages in a channel.
type ChannelWebhook struct {
	ChannelID string
	WebhookID string
	Token     string
}

const (
	getWebhookQuery    = `SELECT channel, webhook, token FROM webhooks WHERE channel=$1`
	insertWebhookQuery = `INSERT INTO webhooks (channel, webhook, token) VALUES ($1, $2, $3) ON CONFLICT (channel) DO NOTHING`
	deleteWebhookQuery = `DELETE FROM webhooks WHERE channel=$1`
)

func (wq *WebhookQuery) Get(ctx context.Context, channelID string) (*ChannelWebhook, error) {
	return wq.QueryOne(ctx, getWebhookQuery, channelID)
}

// Insert caches a webhook unless the channel already has one. Callers should
// read the row back to learn which webhook won.
func (wq *WebhookQuery) Insert(ctx context.Context, wh *ChannelWebhook) error {
	return wq.Exec(ctx, insertWebhookQuery, wh.ChannelID, wh.WebhookID, wh.Token)
}

func (wq *WebhookQuery) Delete(ctx context.Context, channelID string) error {
	return wq.Exec(ctx, deleteWebhookQuery, channelID)
}

func (wh *ChannelWebhook) Scan(row dbutil.Scannable) (*ChannelWebhook, error) {
	if err := row.Scan(&wh.ChannelID, &wh.WebhookID, &wh.Token); err != nil {
		return nil, err
	}
	return wh, nil
}
