// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package mattermost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = time.Minute
)

// Gateway receives events over the Mattermost WebSocket and reconnects when
// the connection drops.
type Gateway struct {
	serverURL string
	token     string
	botUserID string
	log       zerolog.Logger

	connected chan struct{}
	up        atomic.Bool
}

func NewGateway(client *Client, log zerolog.Logger) *Gateway {
	return &Gateway{
		serverURL: client.ServerURL(),
		token:     client.Token(),
		botUserID: client.BotUserID(),
		log:       log.With().Str("component", "mm_gateway").Logger(),
		connected: make(chan struct{}),
	}
}

// Connected is closed once the first WebSocket connection is established.
func (g *Gateway) Connected() <-chan struct{} {
	return g.connected
}

// IsConnected reports whether a WebSocket connection is currently open.
func (g *Gateway) IsConnected() bool {
	return g.up.Load()
}

// Run listens for events until ctx is cancelled, calling handle for each
// one from the listening goroutine.
func (g *Gateway) Run(ctx context.Context, handle func(platform.Event)) error {
	delay := minReconnectDelay
	first := true
	for {
		wasConnected, err := g.listen(ctx, handle, &first)
		if ctx.Err() != nil {
			return nil
		}
		if wasConnected {
			delay = minReconnectDelay
		}
		g.log.Warn().Err(err).Dur("retry_in", delay).Msg("WebSocket disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

func (g *Gateway) listen(ctx context.Context, handle func(platform.Event), first *bool) (bool, error) {
	wsURL := httpToWS(g.serverURL)
	ws, err := model.NewWebSocketClient4(wsURL, g.token)
	if err != nil {
		return false, fmt.Errorf("failed to create websocket client: %w", err)
	}
	defer ws.Close()
	ws.Listen()
	g.up.Store(true)
	defer g.up.Store(false)
	g.log.Info().Str("ws_url", wsURL).Msg("WebSocket connected")
	if *first {
		*first = false
		close(g.connected)
	}

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case evt, ok := <-ws.EventChannel:
			if !ok {
				if ws.ListenError != nil {
					return true, ws.ListenError
				}
				return true, errors.New("websocket event channel closed")
			}
			if evt == nil {
				continue
			}
			converted, err := g.convertEvent(evt)
			if err != nil {
				g.log.Warn().Err(err).Str("event_type", string(evt.EventType())).Msg("Failed to parse event")
			} else if converted != nil {
				handle(converted)
			}
		}
	}
}

// httpToWS converts an HTTP(S) URL to a WS(S) URL.
func httpToWS(url string) string {
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	if strings.HasPrefix(url, "http://") {
		return "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url
}

// convertEvent turns a WebSocket event into a platform event. It returns nil
// for events the bot doesn't care about.
func (g *Gateway) convertEvent(evt *model.WebSocketEvent) (platform.Event, error) {
	switch evt.EventType() {
	case model.WebsocketEventPosted:
		post, err := g.parsePostedEvent(evt)
		if post == nil {
			return nil, err
		}
		return &platform.MessageCreated{Message: convertPost(post)}, nil
	case model.WebsocketEventReactionAdded:
		reaction, err := g.parseReactionEvent(evt)
		if reaction == nil {
			return nil, err
		}
		return &platform.ReactionAdded{
			UserID:    reaction.UserId,
			ChannelID: reaction.ChannelId,
			MessageID: reaction.PostId,
			Emoji:     reaction.EmojiName,
		}, nil
	case model.WebsocketEventPostDeleted:
		post, err := parsePostData(evt)
		if post == nil {
			return nil, err
		}
		return &platform.MessageDeleted{
			ChannelID: post.ChannelId,
			MessageID: post.Id,
			Content:   post.Message,
		}, nil
	default:
		g.log.Trace().Str("event_type", string(evt.EventType())).Msg("Unhandled event type")
		return nil, nil
	}
}

func parsePostData(evt *model.WebSocketEvent) (*model.Post, error) {
	postJSON, ok := evt.GetData()["post"].(string)
	if !ok {
		return nil, fmt.Errorf("%s event missing post data", evt.EventType())
	}
	var post model.Post
	if err := json.Unmarshal([]byte(postJSON), &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post: %w", err)
	}
	return &post, nil
}

// parsePostedEvent returns the new post, or nil for posts that must not be
// proxied or treated as commands.
func (g *Gateway) parsePostedEvent(evt *model.WebSocketEvent) (*model.Post, error) {
	post, err := parsePostData(evt)
	if err != nil {
		return nil, err
	}
	// Echo prevention: own posts include every proxied repost.
	if post.UserId == g.botUserID {
		return nil, nil
	}
	// Echo prevention: system messages and other webhooks.
	if post.Type != "" && post.Type != model.PostTypeDefault {
		return nil, nil
	}
	if post.GetProp(model.PostPropsFromWebhook) == "true" {
		return nil, nil
	}
	return post, nil
}

func (g *Gateway) parseReactionEvent(evt *model.WebSocketEvent) (*model.Reaction, error) {
	reactionJSON, ok := evt.GetData()["reaction"].(string)
	if !ok {
		return nil, errors.New("reaction event missing reaction data")
	}
	var reaction model.Reaction
	if err := json.Unmarshal([]byte(reactionJSON), &reaction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reaction: %w", err)
	}
	if reaction.UserId == g.botUserID {
		return nil, nil
	}
	if reaction.ChannelId == "" {
		reaction.ChannelId = evt.GetBroadcast().ChannelId
	}
	return &reaction, nil
}
