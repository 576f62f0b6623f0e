// Copyright 2024-2026 Aiku AI

package proxy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

const testBotID = "bot-user-id"

type sentRecord struct {
	Hook *platform.Webhook
	Msg  *platform.WebhookMessage
	ID   string
}

type postRecord struct {
	ChannelID string
	Msg       *platform.OutgoingMessage
}

// fakeClient is an in-memory platform recording every call.
type fakeClient struct {
	mu sync.Mutex

	channels map[string]*platform.Channel
	users    map[string]*platform.User
	files    map[string]*platform.File

	// hooks are the webhooks that exist on the platform.
	hooks map[string]*platform.Webhook

	listErr     error
	createErr   error
	executeErr  error
	deleteErr   error
	sendErr     error
	downloadErr error

	// onDelete runs after a successful platform delete, like the delete
	// event the platform sends back.
	onDelete func(messageID string)

	nextID       int
	creates      int
	executeCalls int
	sent         []sentRecord
	deleted      []string
	posts        []postRecord
}

var _ Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		channels: map[string]*platform.Channel{
			"chan1": {ID: "chan1", TeamID: "team1", Name: "town-square", Type: platform.ChannelOpen},
			"logs":  {ID: "logs", TeamID: "team1", Name: "proxy-logs", Type: platform.ChannelPrivate},
			"dm":    {ID: "dm", Name: "user1__bot", Type: platform.ChannelDirect},
		},
		users: map[string]*platform.User{
			"user1": {ID: "user1", Username: "alice"},
			"user2": {ID: "user2", Username: "bob"},
		},
		files: map[string]*platform.File{},
		hooks: map[string]*platform.Webhook{},
	}
}

func (f *fakeClient) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeClient) ListWebhooks(_ context.Context, channelID string) ([]*platform.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*platform.Webhook
	for _, h := range f.hooks {
		if h.ChannelID == channelID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeClient) CreateWebhook(_ context.Context, channelID, _ string) (*platform.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates++
	id := f.newID("hook")
	hook := &platform.Webhook{ID: id, Token: id, ChannelID: channelID, CreatorID: testBotID}
	f.hooks[id] = hook
	return hook, nil
}

func (f *fakeClient) ExecuteWebhook(_ context.Context, hook *platform.Webhook, msg *platform.WebhookMessage) (*platform.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executeCalls++
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	if existing, ok := f.hooks[hook.ID]; !ok || existing.ChannelID != hook.ChannelID {
		return nil, fmt.Errorf("%w: %s", platform.ErrUnknownWebhook, hook.ID)
	}
	id := f.newID("post")
	f.sent = append(f.sent, sentRecord{Hook: hook, Msg: msg, ID: id})
	sent := &platform.SentMessage{ID: id, ChannelID: hook.ChannelID, CreatedAt: time.Now()}
	if msg.File != nil {
		sent.Attachments = []platform.Attachment{{ID: f.newID("file"), Name: msg.File.Name}}
	}
	return sent, nil
}

func (f *fakeClient) GetMessage(_ context.Context, channelID, messageID string) (*platform.Message, error) {
	return nil, platform.ErrNotFound
}

func (f *fakeClient) SendMessage(_ context.Context, channelID string, msg *platform.OutgoingMessage) (*platform.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.posts = append(f.posts, postRecord{ChannelID: channelID, Msg: msg})
	return &platform.SentMessage{ID: f.newID("post"), ChannelID: channelID, CreatedAt: time.Now()}, nil
}

func (f *fakeClient) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	if f.deleteErr != nil {
		f.mu.Unlock()
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	onDelete := f.onDelete
	f.mu.Unlock()
	if onDelete != nil {
		onDelete(messageID)
	}
	return nil
}

func (f *fakeClient) DownloadAttachment(_ context.Context, att platform.Attachment) (*platform.File, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	if file, ok := f.files[att.ID]; ok {
		return file, nil
	}
	return nil, platform.ErrNotFound
}

func (f *fakeClient) MessageLink(messageID string) string {
	return "http://mm.test/_redirect/pl/" + messageID
}

func (f *fakeClient) AttachmentURL(att platform.Attachment) string {
	return "http://mm.test/api/v4/files/" + att.ID
}

func (f *fakeClient) GetChannel(_ context.Context, channelID string) (*platform.Channel, error) {
	if ch, ok := f.channels[channelID]; ok {
		return ch, nil
	}
	return nil, platform.ErrNotFound
}

func (f *fakeClient) GetUser(_ context.Context, userID string) (*platform.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, platform.ErrNotFound
}

func (f *fakeClient) Sent() []sentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRecord(nil), f.sent...)
}

func (f *fakeClient) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeClient) Posts() []postRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]postRecord(nil), f.posts...)
}
