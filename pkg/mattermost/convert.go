// Copyright 2024-2026 Aiku AI

package mattermost

import (
	"time"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

func convertUser(u *model.User) *platform.User {
	return &platform.User{
		ID:          u.Id,
		Username:    u.Username,
		DisplayName: u.GetDisplayName(model.ShowNicknameFullName),
		IsBot:       u.IsBot,
	}
}

func convertChannelType(t model.ChannelType) platform.ChannelType {
	switch t {
	case model.ChannelTypePrivate:
		return platform.ChannelPrivate
	case model.ChannelTypeDirect:
		return platform.ChannelDirect
	case model.ChannelTypeGroup:
		return platform.ChannelGroup
	default:
		return platform.ChannelOpen
	}
}

func convertChannel(ch *model.Channel) *platform.Channel {
	return &platform.Channel{
		ID:          ch.Id,
		TeamID:      ch.TeamId,
		Name:        ch.Name,
		DisplayName: ch.DisplayName,
		Type:        convertChannelType(ch.Type),
	}
}

func convertFileInfo(fi *model.FileInfo) platform.Attachment {
	return platform.Attachment{
		ID:       fi.Id,
		Name:     fi.Name,
		MimeType: fi.MimeType,
		Size:     fi.Size,
	}
}

func convertPost(post *model.Post) *platform.Message {
	msg := &platform.Message{
		ID:          post.Id,
		ChannelID:   post.ChannelId,
		AuthorID:    post.UserId,
		Content:     post.Message,
		CreatedAt:   time.UnixMilli(post.CreateAt),
		RootID:      post.RootId,
		FromWebhook: post.GetProp(model.PostPropsFromWebhook) == "true",
	}
	if post.Metadata != nil && len(post.Metadata.Files) > 0 {
		for _, fi := range post.Metadata.Files {
			msg.Attachments = append(msg.Attachments, convertFileInfo(fi))
		}
	} else {
		for _, id := range post.FileIds {
			msg.Attachments = append(msg.Attachments, platform.Attachment{ID: id})
		}
	}
	return msg
}

func convertWebhook(hook *model.IncomingWebhook) *platform.Webhook {
	return &platform.Webhook{
		ID:        hook.Id,
		Token:     hook.Id,
		ChannelID: hook.ChannelId,
		CreatorID: hook.UserId,
	}
}

func convertEmbed(embed *platform.Embed) *model.SlackAttachment {
	att := &model.SlackAttachment{
		Fallback:   embed.Text,
		Color:      embed.Color,
		AuthorName: embed.AuthorName,
		AuthorIcon: embed.AuthorIcon,
		Text:       embed.Text,
		Footer:     embed.Footer,
		ThumbURL:   embed.ThumbURL,
	}
	if !embed.Timestamp.IsZero() {
		att.Timestamp = embed.Timestamp.Unix()
	}
	return att
}
