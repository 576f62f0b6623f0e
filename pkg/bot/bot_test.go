// Copyright 2024-2026 Aiku AI

package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/aiku/mattermost-proxybot/pkg/metrics"
	"github.com/aiku/mattermost-proxybot/pkg/platform"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sliceSource delivers a fixed list of events and returns.
type sliceSource []platform.Event

func (s sliceSource) Run(_ context.Context, handle func(platform.Event)) error {
	for _, evt := range s {
		handle(evt)
	}
	return nil
}

type recorder struct {
	mu       sync.Mutex
	proxied  []string
	tryDel   []string
	deleted  []string
	commands []string
	replies  []platform.OutgoingMessage
}

func (r *recorder) add(list *[]string, v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*list = append(*list, v)
}

type fakeProxier struct {
	rec *recorder
	fn  func(msg *platform.Message) (bool, error)
}

func (fp *fakeProxier) HandleMessage(_ context.Context, msg *platform.Message) (bool, error) {
	fp.rec.add(&fp.rec.proxied, msg.Content)
	if fp.fn != nil {
		return fp.fn(msg)
	}
	return false, nil
}

type fakeDeleter struct {
	rec *recorder
	err error
}

func (fd *fakeDeleter) TryDelete(_ context.Context, messageID, requesterID string) (bool, error) {
	fd.rec.add(&fd.rec.tryDel, messageID+"/"+requesterID)
	return fd.err == nil, fd.err
}

func (fd *fakeDeleter) HandleDeleted(_ context.Context, messageID, content string) (bool, error) {
	fd.rec.add(&fd.rec.deleted, messageID+"/"+content)
	return true, nil
}

type fakeCommands struct{ rec *recorder }

func (fc *fakeCommands) Handle(_ context.Context, msg *platform.Message) bool {
	if !strings.HasPrefix(msg.Content, "pk;") {
		return false
	}
	fc.rec.add(&fc.rec.commands, msg.Content)
	return true
}

type fakeWaiter struct{ waitingFor string }

func (fw *fakeWaiter) Deliver(msg *platform.Message) bool {
	return fw.waitingFor != "" && msg.AuthorID == fw.waitingFor
}

func (r *recorder) SendMessage(_ context.Context, channelID string, msg *platform.OutgoingMessage) (*platform.SentMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, *msg)
	return &platform.SentMessage{ID: "reply", ChannelID: channelID}, nil
}

func newTestBot(source EventSource, rec *recorder, proxier *fakeProxier, deleter *fakeDeleter, waiter *fakeWaiter) *Bot {
	return New(Params{
		Source:        source,
		Proxier:       proxier,
		Deleter:       deleter,
		Commands:      &fakeCommands{rec: rec},
		Waiter:        waiter,
		Replier:       rec,
		DeleteEmoji:   ":x:",
		MaxConcurrent: 4,
		Metrics:       metrics.New(nil),
		Log:           zerolog.Nop(),
	})
}

func created(author, content string) *platform.MessageCreated {
	return &platform.MessageCreated{Message: &platform.Message{
		ID: "post-" + content, ChannelID: "chan1", AuthorID: author, Content: content, RootID: "root1",
	}}
}

func TestRouting(t *testing.T) {
	rec := &recorder{}
	source := sliceSource{
		created("user1", "pk;help"),
		created("user1", "[hello]"),
		created("user2", "yes"),
		&platform.ReactionAdded{UserID: "user1", ChannelID: "chan1", MessageID: "p1", Emoji: "x"},
		&platform.ReactionAdded{UserID: "user1", ChannelID: "chan1", MessageID: "p2", Emoji: "thumbsup"},
		&platform.MessageDeleted{ChannelID: "chan1", MessageID: "p3", Content: "gone"},
	}
	b := newTestBot(source, rec, &fakeProxier{rec: rec}, &fakeDeleter{rec: rec}, &fakeWaiter{waitingFor: "user2"})
	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(rec.commands) != 1 || rec.commands[0] != "pk;help" {
		t.Errorf("commands = %v", rec.commands)
	}
	if len(rec.proxied) != 1 || rec.proxied[0] != "[hello]" {
		t.Errorf("proxied = %v, want only the non-command message", rec.proxied)
	}
	if len(rec.tryDel) != 1 || rec.tryDel[0] != "p1/user1" {
		t.Errorf("TryDelete calls = %v", rec.tryDel)
	}
	if len(rec.deleted) != 1 || rec.deleted[0] != "p3/gone" {
		t.Errorf("HandleDeleted calls = %v", rec.deleted)
	}
	if len(rec.replies) != 0 {
		t.Errorf("unexpected replies: %v", rec.replies)
	}
}

func TestProxyErrorReplies(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "user error", err: usererr.ErrCannotManageWebhooks, want: ":x: " + usererr.ErrCannotManageWebhooks.Message},
		{name: "wrapped user error", err: usererr.ErrPrivateChannel.WithCause(errors.New("dm")), want: ":x: " + usererr.ErrPrivateChannel.Message},
		{name: "internal error", err: errors.New("database is on fire"), want: ":x: " + usererr.GenericMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			proxier := &fakeProxier{rec: rec, fn: func(*platform.Message) (bool, error) { return false, tt.err }}
			b := newTestBot(sliceSource{created("user1", "[hi]")}, rec, proxier, &fakeDeleter{rec: rec}, &fakeWaiter{})
			if err := b.Run(context.Background()); err != nil {
				t.Fatal(err)
			}
			if len(rec.replies) != 1 {
				t.Fatalf("replies = %v", rec.replies)
			}
			if got := rec.replies[0]; got.Content != tt.want || got.RootID != "root1" {
				t.Errorf("reply = %+v, want %q in thread root1", got, tt.want)
			}
		})
	}
}

func TestReactionDeleteError(t *testing.T) {
	rec := &recorder{}
	source := sliceSource{&platform.ReactionAdded{UserID: "user1", ChannelID: "chan1", MessageID: "p1", Emoji: "x"}}
	denied := usererr.New(usererr.Permission, "I can't delete that.")

	b := newTestBot(source, rec, &fakeProxier{rec: rec}, &fakeDeleter{rec: rec, err: denied}, &fakeWaiter{})
	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.replies) != 1 || rec.replies[0].Content != ":x: I can't delete that." {
		t.Errorf("replies = %v", rec.replies)
	}

	rec = &recorder{}
	b = newTestBot(source, rec, &fakeProxier{rec: rec}, &fakeDeleter{rec: rec, err: errors.New("timeout")}, &fakeWaiter{})
	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.replies) != 0 {
		t.Errorf("internal delete error was shown to the user: %v", rec.replies)
	}
}

func TestConcurrencyLimit(t *testing.T) {
	rec := &recorder{}
	var running, peak atomic.Int32
	release := make(chan struct{})
	proxier := &fakeProxier{rec: rec, fn: func(*platform.Message) (bool, error) {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return true, nil
	}}
	source := make(sliceSource, 10)
	for i := range source {
		source[i] = created("user1", "[msg]")
	}
	b := newTestBot(source, rec, proxier, &fakeDeleter{rec: rec}, &fakeWaiter{})
	b.maxConcurrent = 3

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()
	deadline := time.Now().Add(5 * time.Second)
	for running.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("handlers never started")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if p := peak.Load(); p != 3 {
		t.Errorf("peak concurrency = %d, want 3", p)
	}
	if len(rec.proxied) != 10 {
		t.Errorf("handled %d messages, want 10", len(rec.proxied))
	}
}

func TestPanicIsRecovered(t *testing.T) {
	rec := &recorder{}
	proxier := &fakeProxier{rec: rec, fn: func(msg *platform.Message) (bool, error) {
		if msg.Content == "[boom]" {
			panic("boom")
		}
		return true, nil
	}}
	b := newTestBot(sliceSource{created("user1", "[boom]"), created("user1", "[fine]")}, rec, proxier, &fakeDeleter{rec: rec}, &fakeWaiter{})
	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.proxied) != 2 {
		t.Errorf("proxied = %v", rec.proxied)
	}
}
