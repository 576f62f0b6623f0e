// Copyright 2024-2026 Aiku AI

// Package proxy reposts tagged messages as system members and tracks the
// reposted messages so they can later be deleted and audited.
package proxy

import (
	"context"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

// Client is the subset of the platform the proxy core talks to.
type Client interface {
	platform.Webhooks
	platform.Messages
	GetChannel(ctx context.Context, channelID string) (*platform.Channel, error)
	GetUser(ctx context.Context, userID string) (*platform.User, error)
}

// DeletedPlaceholder is logged when a deleted message's content is unknown.
const DeletedPlaceholder = "*(unknown, message deleted by moderator)*"
