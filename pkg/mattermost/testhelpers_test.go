// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package mattermost

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
)

const (
	testBotID = "bot-user-id"
	testToken = "bot-token"
)

// endpointCall records which API endpoints were hit during a test.
type endpointCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeMM is a test helper that wraps an httptest.Server simulating the
// Mattermost API. It records calls and provides canned responses.
type fakeMM struct {
	Server *httptest.Server

	mu      sync.Mutex
	calls   []endpointCall
	counter int

	Users       map[string]*model.User
	Channels    map[string]*model.Channel
	Hooks       map[string]*model.IncomingWebhook
	Posts       map[string]*model.Post
	Files       map[string][]byte
	FileInfos   map[string]*model.FileInfo
	TeamMembers map[string]*model.TeamMember
	// CreatedPosts holds every post created through the API, in order.
	CreatedPosts []*model.Post
	// Status overrides the response status for paths containing the key.
	Status map[string]int
}

func newFakeMM(t *testing.T) *fakeMM {
	t.Helper()
	f := &fakeMM{
		Users: map[string]*model.User{
			testBotID: {Id: testBotID, Username: "proxybot", IsBot: true},
		},
		Channels:    make(map[string]*model.Channel),
		Hooks:       make(map[string]*model.IncomingWebhook),
		Posts:       make(map[string]*model.Post),
		Files:       make(map[string][]byte),
		FileInfos:   make(map[string]*model.FileInfo),
		TeamMembers: make(map[string]*model.TeamMember),
		Status:      make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(f.Server.Close)
	return f
}

// newTestClient returns a client connected to f.
func newTestClient(t *testing.T, f *fakeMM) *Client {
	t.Helper()
	c := NewClient(f.Server.URL, testToken, zerolog.Nop())
	if _, err := c.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c
}

func (f *fakeMM) nextID(prefix string) string {
	f.counter++
	return fmt.Sprintf("%s-%d", prefix, f.counter)
}

func (f *fakeMM) Calls() []endpointCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]endpointCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

func (f *fakeMM) CalledPath(method, path string) bool {
	for _, c := range f.Calls() {
		if c.Method == method && strings.Contains(c.Path, path) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":          "fake.error",
		"message":     http.StatusText(status),
		"status_code": status,
	})
}

func (f *fakeMM) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpointCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})

	for substr, status := range f.Status {
		if strings.Contains(r.URL.Path, substr) {
			writeError(w, status)
			return
		}
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v4")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case r.Method == http.MethodGet && path == "/users/me":
		writeJSON(w, f.Users[testBotID])

	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "users" && parts[1] == "username":
		for _, u := range f.Users {
			if u.Username == parts[2] {
				writeJSON(w, u)
				return
			}
		}
		writeError(w, http.StatusNotFound)

	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "users":
		if u, ok := f.Users[parts[1]]; ok {
			writeJSON(w, u)
			return
		}
		writeError(w, http.StatusNotFound)

	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "channels":
		if ch, ok := f.Channels[parts[1]]; ok {
			writeJSON(w, ch)
			return
		}
		writeError(w, http.StatusNotFound)

	// GET /teams/{team_id}/channels/name/{name}
	case r.Method == http.MethodGet && len(parts) == 5 && parts[0] == "teams" && parts[2] == "channels":
		for _, ch := range f.Channels {
			if ch.TeamId == parts[1] && ch.Name == parts[4] {
				writeJSON(w, ch)
				return
			}
		}
		writeError(w, http.StatusNotFound)

	// GET /teams/{team_id}/members/{user_id}
	case r.Method == http.MethodGet && len(parts) == 4 && parts[0] == "teams" && parts[2] == "members":
		if tm, ok := f.TeamMembers[parts[1]+":"+parts[3]]; ok {
			writeJSON(w, tm)
			return
		}
		writeError(w, http.StatusNotFound)

	case r.Method == http.MethodGet && path == "/hooks/incoming":
		teamID := r.URL.Query().Get("team_id")
		hooks := []*model.IncomingWebhook{}
		if r.URL.Query().Get("page") == "0" {
			for _, h := range f.Hooks {
				if h.TeamId == teamID {
					hooks = append(hooks, h)
				}
			}
		}
		writeJSON(w, hooks)

	case r.Method == http.MethodPost && path == "/hooks/incoming":
		var hook model.IncomingWebhook
		_ = json.Unmarshal(body, &hook)
		hook.Id = f.nextID("hook")
		hook.UserId = testBotID
		if ch, ok := f.Channels[hook.ChannelId]; ok {
			hook.TeamId = ch.TeamId
		}
		f.Hooks[hook.Id] = &hook
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, &hook)

	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "hooks" && parts[1] == "incoming":
		if h, ok := f.Hooks[parts[2]]; ok {
			writeJSON(w, h)
			return
		}
		writeError(w, http.StatusNotFound)

	case r.Method == http.MethodPost && path == "/files":
		id := f.nextID("file")
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, &model.FileUploadResponse{FileInfos: []*model.FileInfo{{Id: id, Name: "upload"}}})

	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "files" && parts[2] == "info":
		if fi, ok := f.FileInfos[parts[1]]; ok {
			writeJSON(w, fi)
			return
		}
		writeError(w, http.StatusNotFound)

	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "files":
		if data, ok := f.Files[parts[1]]; ok {
			_, _ = w.Write(data)
			return
		}
		writeError(w, http.StatusNotFound)

	case r.Method == http.MethodPost && path == "/posts":
		var post model.Post
		_ = json.Unmarshal(body, &post)
		post.Id = f.nextID("post")
		post.UserId = testBotID
		post.CreateAt = 1767225600000
		f.Posts[post.Id] = &post
		f.CreatedPosts = append(f.CreatedPosts, &post)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, &post)

	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "posts":
		if p, ok := f.Posts[parts[1]]; ok {
			writeJSON(w, p)
			return
		}
		writeError(w, http.StatusNotFound)

	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "posts":
		if _, ok := f.Posts[parts[1]]; !ok {
			writeError(w, http.StatusNotFound)
			return
		}
		delete(f.Posts, parts[1])
		writeJSON(w, map[string]string{"status": "OK"})

	default:
		writeError(w, http.StatusNotImplemented)
	}
}

// newWebSocketEvent builds a WebSocket event for parser tests.
func newWebSocketEvent(eventType model.WebsocketEventType, channelID string, data map[string]any) *model.WebSocketEvent {
	return model.NewWebSocketEvent(eventType, "", channelID, "", nil, "").SetData(data)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
