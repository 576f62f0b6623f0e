// Copyright 2024-2026 Aiku AI

package mattermost

import (
	"testing"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

func newTestGateway() *Gateway {
	return &Gateway{botUserID: testBotID, log: zerolog.Nop(), connected: make(chan struct{})}
}

func TestHTTPToWS(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"https://mm.example.com":      "wss://mm.example.com",
		"http://localhost:8065":       "ws://localhost:8065",
		"wss://already.example.com":   "wss://already.example.com",
		"https://mm.example.com/sub/": "wss://mm.example.com/sub/",
	}
	for in, want := range tests {
		if got := httpToWS(in); got != want {
			t.Errorf("httpToWS(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestConvertPostedEvent(t *testing.T) {
	t.Parallel()
	g := newTestGateway()
	post := &model.Post{Id: "p1", ChannelId: "ch1", UserId: "u1", Message: "[hello]", RootId: "root", CreateAt: 1000}
	evt := newWebSocketEvent(model.WebsocketEventPosted, "ch1", map[string]any{"post": mustJSON(t, post)})

	converted, err := g.convertEvent(evt)
	if err != nil {
		t.Fatal(err)
	}
	created, ok := converted.(*platform.MessageCreated)
	if !ok {
		t.Fatalf("got %T, want *platform.MessageCreated", converted)
	}
	msg := created.Message
	if msg.ID != "p1" || msg.AuthorID != "u1" || msg.Content != "[hello]" || msg.RootID != "root" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestConvertPostedEventEchoPrevention(t *testing.T) {
	t.Parallel()
	g := newTestGateway()
	webhookPost := &model.Post{Id: "p2", ChannelId: "ch1", UserId: "u1", Message: "hi"}
	webhookPost.AddProp(model.PostPropsFromWebhook, "true")
	tests := map[string]*model.Post{
		"own post":       {Id: "p1", ChannelId: "ch1", UserId: testBotID, Message: "hi"},
		"webhook post":   webhookPost,
		"system message": {Id: "p3", ChannelId: "ch1", UserId: "u1", Type: model.PostTypeJoinChannel},
	}
	for name, post := range tests {
		evt := newWebSocketEvent(model.WebsocketEventPosted, "ch1", map[string]any{"post": mustJSON(t, post)})
		converted, err := g.convertEvent(evt)
		if err != nil || converted != nil {
			t.Errorf("%s: got %v, %v; want it skipped", name, converted, err)
		}
	}
}

func TestConvertPostedEventBadData(t *testing.T) {
	t.Parallel()
	g := newTestGateway()
	for name, data := range map[string]map[string]any{
		"missing":   {},
		"malformed": {"post": "{not json"},
	} {
		evt := newWebSocketEvent(model.WebsocketEventPosted, "ch1", data)
		if converted, err := g.convertEvent(evt); err == nil || converted != nil {
			t.Errorf("%s: got %v, %v; want an error", name, converted, err)
		}
	}
}

func TestConvertReactionEvent(t *testing.T) {
	t.Parallel()
	g := newTestGateway()
	reaction := &model.Reaction{UserId: "u1", PostId: "p1", EmojiName: "x"}
	evt := newWebSocketEvent(model.WebsocketEventReactionAdded, "ch1", map[string]any{"reaction": mustJSON(t, reaction)})

	converted, err := g.convertEvent(evt)
	if err != nil {
		t.Fatal(err)
	}
	added, ok := converted.(*platform.ReactionAdded)
	if !ok {
		t.Fatalf("got %T, want *platform.ReactionAdded", converted)
	}
	if added.UserID != "u1" || added.MessageID != "p1" || added.Emoji != "x" || added.ChannelID != "ch1" {
		t.Errorf("unexpected reaction %+v", added)
	}

	own := &model.Reaction{UserId: testBotID, PostId: "p1", EmojiName: "x"}
	evt = newWebSocketEvent(model.WebsocketEventReactionAdded, "ch1", map[string]any{"reaction": mustJSON(t, own)})
	if converted, err = g.convertEvent(evt); err != nil || converted != nil {
		t.Errorf("own reaction: got %v, %v; want it skipped", converted, err)
	}
}

func TestConvertPostDeletedKeepsOwnPosts(t *testing.T) {
	t.Parallel()
	g := newTestGateway()
	post := &model.Post{Id: "p1", ChannelId: "ch1", UserId: testBotID, Message: "proxied text"}
	evt := newWebSocketEvent(model.WebsocketEventPostDeleted, "ch1", map[string]any{"post": mustJSON(t, post)})

	converted, err := g.convertEvent(evt)
	if err != nil {
		t.Fatal(err)
	}
	deleted, ok := converted.(*platform.MessageDeleted)
	if !ok {
		t.Fatalf("got %T, want *platform.MessageDeleted", converted)
	}
	if deleted.MessageID != "p1" || deleted.ChannelID != "ch1" || deleted.Content != "proxied text" {
		t.Errorf("unexpected event %+v", deleted)
	}
}

func TestConvertIgnoresOtherEvents(t *testing.T) {
	t.Parallel()
	g := newTestGateway()
	evt := newWebSocketEvent(model.WebsocketEventTyping, "ch1", map[string]any{"user_id": "u1"})
	if converted, err := g.convertEvent(evt); err != nil || converted != nil {
		t.Errorf("got %v, %v; want nothing", converted, err)
	}
}
