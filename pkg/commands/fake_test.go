// Copyright 2024-2026 Aiku AI

package commands

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

type sentMessage struct {
	ChannelID string
	Content   string
}

type fakeClient struct {
	mu       sync.Mutex
	users    map[string]*platform.User
	channels map[string]*platform.Channel
	admins   map[string]bool
	sendErr  map[string]error
	sent     []sentMessage
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		users: map[string]*platform.User{
			"user1": {ID: "user1", Username: "alice"},
			"user2": {ID: "user2", Username: "bob"},
			"admin": {ID: "admin", Username: "carol"},
		},
		channels: map[string]*platform.Channel{
			"chan1":     {ID: "chan1", TeamID: "team1", Name: "town-square", Type: platform.ChannelOpen},
			"logs":      {ID: "logs", TeamID: "team1", Name: "logs", Type: platform.ChannelPrivate},
			"locked":    {ID: "locked", TeamID: "team1", Name: "locked", Type: platform.ChannelPrivate},
			"elsewhere": {ID: "elsewhere", TeamID: "team2", Name: "elsewhere", Type: platform.ChannelOpen},
			"dm":        {ID: "dm", Name: "user1__bot", Type: platform.ChannelDirect},
		},
		admins:  map[string]bool{"admin": true},
		sendErr: map[string]error{"locked": platform.ErrForbidden},
	}
}

func (fc *fakeClient) GetUser(_ context.Context, userID string) (*platform.User, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if u, ok := fc.users[userID]; ok {
		return u, nil
	}
	return nil, platform.ErrNotFound
}

func (fc *fakeClient) GetUserByUsername(_ context.Context, username string) (*platform.User, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	username = strings.TrimPrefix(username, "@")
	for _, u := range fc.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (fc *fakeClient) GetChannel(_ context.Context, channelID string) (*platform.Channel, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if ch, ok := fc.channels[channelID]; ok {
		return ch, nil
	}
	return nil, platform.ErrNotFound
}

func (fc *fakeClient) GetChannelByName(_ context.Context, teamID, name string) (*platform.Channel, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	name = strings.TrimPrefix(name, "~")
	for _, ch := range fc.channels {
		if ch.TeamID == teamID && ch.Name == name {
			return ch, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (fc *fakeClient) IsTeamAdmin(_ context.Context, _, userID string) (bool, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.admins[userID], nil
}

func (fc *fakeClient) SendMessage(_ context.Context, channelID string, msg *platform.OutgoingMessage) (*platform.SentMessage, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if err := fc.sendErr[channelID]; err != nil {
		return nil, err
	}
	fc.sent = append(fc.sent, sentMessage{ChannelID: channelID, Content: msg.Content})
	return &platform.SentMessage{ID: "reply" + time.Now().Format("150405.000000"), ChannelID: channelID, CreatedAt: time.Now()}, nil
}

func (fc *fakeClient) MessageLink(messageID string) string {
	return "https://mm.example.com/_redirect/pl/" + messageID
}

func (fc *fakeClient) Sent() []sentMessage {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]sentMessage(nil), fc.sent...)
}

func (fc *fakeClient) reset() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.sent = nil
}
