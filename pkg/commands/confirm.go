// Copyright 2024-2026 Aiku AI

package commands

import (
	"context"
	"sync"
	"time"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

type waitKey struct {
	channelID string
	userID    string
}

// Waiter hands the next message a user sends in a channel to a command that
// is waiting for a reply there.
type Waiter struct {
	mu      sync.Mutex
	pending map[waitKey]chan *platform.Message
}

func NewWaiter() *Waiter {
	return &Waiter{pending: make(map[waitKey]chan *platform.Message)}
}

// Wait blocks until userID sends a message in channelID, the timeout
// elapses or ctx is done. A newer Wait for the same user and channel
// replaces an older one, which then times out.
func (w *Waiter) Wait(ctx context.Context, channelID, userID string, timeout time.Duration) (*platform.Message, error) {
	key := waitKey{channelID, userID}
	ch := make(chan *platform.Message, 1)
	w.mu.Lock()
	w.pending[key] = ch
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		if w.pending[key] == ch {
			delete(w.pending, key)
		}
		w.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-ch:
		return msg, nil
	case <-timer.C:
		return nil, usererr.ErrTimedOut
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Deliver passes msg to a waiting command. It returns false when nobody is
// waiting for its author in its channel.
func (w *Waiter) Deliver(msg *platform.Message) bool {
	key := waitKey{msg.ChannelID, msg.AuthorID}
	w.mu.Lock()
	ch, ok := w.pending[key]
	if ok {
		delete(w.pending, key)
	}
	w.mu.Unlock()
	if ok {
		ch <- msg
	}
	return ok
}

// Pending is the number of commands waiting for a reply.
func (w *Waiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
