// Copyright 2024-2026 Aiku AI

package mattermost

import (
	"context"
	"fmt"
	"time"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

func (c *Client) GetMessage(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	post, resp, err := c.client.GetPost(ctx, messageID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", classify(err, resp))
	} else if channelID != "" && post.ChannelId != channelID {
		return nil, fmt.Errorf("%w: post %s is not in channel %s", platform.ErrNotFound, messageID, channelID)
	}
	return convertPost(post), nil
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg *platform.OutgoingMessage) (*platform.SentMessage, error) {
	post := &model.Post{
		ChannelId: channelID,
		Message:   msg.Content,
		RootId:    msg.RootID,
	}
	if msg.Embed != nil {
		post.AddProp(model.PostPropsAttachments, []*model.SlackAttachment{convertEmbed(msg.Embed)})
	}
	created, resp, err := c.client.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", classify(err, resp))
	}
	return &platform.SentMessage{
		ID:        created.Id,
		ChannelID: created.ChannelId,
		CreatedAt: time.UnixMilli(created.CreateAt),
	}, nil
}

func (c *Client) DeleteMessage(ctx context.Context, _, messageID string) error {
	resp, err := c.client.DeletePost(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", classify(err, resp))
	}
	return nil
}

func (c *Client) DownloadAttachment(ctx context.Context, att platform.Attachment) (*platform.File, error) {
	name := att.Name
	if name == "" {
		info, resp, err := c.client.GetFileInfo(ctx, att.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get file info: %w", classify(err, resp))
		}
		name = info.Name
	}
	data, resp, err := c.client.GetFile(ctx, att.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", classify(err, resp))
	}
	return &platform.File{Name: name, Data: data}, nil
}

// MessageLink is a permalink that resolves to the post in whichever team it
// lives in.
func (c *Client) MessageLink(messageID string) string {
	return c.serverURL + "/_redirect/pl/" + messageID
}

func (c *Client) AttachmentURL(att platform.Attachment) string {
	return c.serverURL + "/api/v4/files/" + att.ID + "/preview"
}
