// Copyright 2024-2026 Aiku AI

package mattermost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

const webhooksPerPage = 200

// ListWebhooks returns the live incoming webhooks of a channel. Mattermost
// only lists webhooks per team, so the channel's team is looked up first.
func (c *Client) ListWebhooks(ctx context.Context, channelID string) ([]*platform.Webhook, error) {
	channel, resp, err := c.client.GetChannel(ctx, channelID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", classify(err, resp))
	}
	var out []*platform.Webhook
	for page := 0; ; page++ {
		hooks, resp, err := c.client.GetIncomingWebhooksForTeam(ctx, channel.TeamId, page, webhooksPerPage, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list webhooks: %w", classify(err, resp))
		}
		for _, hook := range hooks {
			if hook.ChannelId == channelID && hook.DeleteAt == 0 {
				out = append(out, convertWebhook(hook))
			}
		}
		if len(hooks) < webhooksPerPage {
			return out, nil
		}
	}
}

func (c *Client) CreateWebhook(ctx context.Context, channelID, name string) (*platform.Webhook, error) {
	hook, resp, err := c.client.CreateIncomingWebhook(ctx, &model.IncomingWebhook{
		ChannelId:     channelID,
		DisplayName:   name,
		Description:   "Used to post proxied messages",
		ChannelLocked: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", classify(err, resp))
	}
	return convertWebhook(hook), nil
}

// ExecuteWebhook posts a message under the webhook's identity. Mattermost
// webhook executions don't return the created post, so the post is created
// by the bot with the same props a webhook post carries, after checking the
// webhook still exists in the channel.
func (c *Client) ExecuteWebhook(ctx context.Context, hook *platform.Webhook, msg *platform.WebhookMessage) (*platform.SentMessage, error) {
	live, resp, err := c.client.GetIncomingWebhook(ctx, hook.ID, "")
	if err = classify(err, resp); errors.Is(err, platform.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", platform.ErrUnknownWebhook, err)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	} else if live.ChannelId != hook.ChannelID || live.DeleteAt != 0 {
		return nil, fmt.Errorf("%w: webhook %s no longer belongs to channel %s", platform.ErrUnknownWebhook, hook.ID, hook.ChannelID)
	}

	post := &model.Post{
		ChannelId: hook.ChannelID,
		Message:   msg.Content,
		RootId:    msg.RootID,
	}
	var files []*model.FileInfo
	if msg.File != nil {
		upload, resp, err := c.client.UploadFile(ctx, msg.File.Data, hook.ChannelID, msg.File.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to upload attachment: %w", classify(err, resp))
		}
		files = upload.FileInfos
		for _, fi := range files {
			post.FileIds = append(post.FileIds, fi.Id)
		}
	}
	post.AddProp(model.PostPropsFromWebhook, "true")
	post.AddProp(model.PostPropsOverrideUsername, msg.Username)
	if msg.AvatarURL != "" {
		post.AddProp(model.PostPropsOverrideIconURL, msg.AvatarURL)
	}
	post.AddProp("webhook_id", hook.ID)

	created, resp, err := c.client.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", classify(err, resp))
	}
	sent := &platform.SentMessage{
		ID:        created.Id,
		ChannelID: created.ChannelId,
		CreatedAt: time.UnixMilli(created.CreateAt),
	}
	for _, fi := range files {
		sent.Attachments = append(sent.Attachments, convertFileInfo(fi))
	}
	return sent, nil
}
