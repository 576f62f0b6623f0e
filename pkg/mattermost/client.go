// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package mattermost implements the platform interfaces on top of the
// Mattermost REST and WebSocket APIs.
package mattermost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

// Client talks to Mattermost as the bot account.
type Client struct {
	client    *model.Client4
	serverURL string
	botUserID string
	log       zerolog.Logger
}

var _ platform.Client = (*Client)(nil)

// NewClient creates a client for the given server and bot access token.
// Connect must be called before use.
func NewClient(serverURL, token string, log zerolog.Logger) *Client {
	serverURL = strings.TrimSuffix(serverURL, "/")
	client := model.NewAPIv4Client(serverURL)
	client.SetToken(token)
	return &Client{
		client:    client,
		serverURL: serverURL,
		log:       log.With().Str("component", "mm_client").Logger(),
	}
}

// Connect verifies the token and learns the bot's own user ID.
func (c *Client) Connect(ctx context.Context) (*platform.User, error) {
	me, resp, err := c.client.GetMe(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get bot user: %w", classify(err, resp))
	}
	c.botUserID = me.Id
	c.log.Info().Str("user_id", me.Id).Str("username", me.Username).Msg("Connected to Mattermost")
	return convertUser(me), nil
}

func (c *Client) BotUserID() string {
	return c.botUserID
}

func (c *Client) ServerURL() string {
	return c.serverURL
}

// Token is the bot access token, for the WebSocket gateway.
func (c *Client) Token() string {
	return c.client.AuthToken
}

// classify maps HTTP failures onto the platform error sentinels.
func classify(err error, resp *model.Response) error {
	if err == nil {
		return nil
	}
	status := 0
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode
	}
	if status == 0 && resp != nil {
		status = resp.StatusCode
	}
	switch status {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", platform.ErrForbidden, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", platform.ErrNotFound, err)
	default:
		return err
	}
}
