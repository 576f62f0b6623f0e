// Copyright 2024-2026 Aiku AI

// Package bot routes platform events to the proxy, deletion and command
// handlers.
package bot

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aiku/mattermost-proxybot/pkg/metrics"
	"github.com/aiku/mattermost-proxybot/pkg/platform"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

// EventSource delivers platform events until ctx is done.
type EventSource interface {
	Run(ctx context.Context, handle func(platform.Event)) error
}

type MessageProxier interface {
	HandleMessage(ctx context.Context, msg *platform.Message) (bool, error)
}

type MessageDeleter interface {
	TryDelete(ctx context.Context, messageID, requesterID string) (bool, error)
	HandleDeleted(ctx context.Context, messageID, content string) (bool, error)
}

type CommandHandler interface {
	Handle(ctx context.Context, msg *platform.Message) bool
}

// ReplyWaiter takes messages that answer a pending confirmation prompt.
type ReplyWaiter interface {
	Deliver(msg *platform.Message) bool
}

type Replier interface {
	SendMessage(ctx context.Context, channelID string, msg *platform.OutgoingMessage) (*platform.SentMessage, error)
}

type Params struct {
	Source        EventSource
	Proxier       MessageProxier
	Deleter       MessageDeleter
	Commands      CommandHandler
	Waiter        ReplyWaiter
	Replier       Replier
	DeleteEmoji   string
	MaxConcurrent int
	Metrics       *metrics.Metrics
	Log           zerolog.Logger
}

type Bot struct {
	source        EventSource
	proxier       MessageProxier
	deleter       MessageDeleter
	commands      CommandHandler
	waiter        ReplyWaiter
	replier       Replier
	deleteEmoji   string
	maxConcurrent int
	metrics       *metrics.Metrics
	log           zerolog.Logger
}

func New(p Params) *Bot {
	return &Bot{
		source:        p.Source,
		proxier:       p.Proxier,
		deleter:       p.Deleter,
		commands:      p.Commands,
		waiter:        p.Waiter,
		replier:       p.Replier,
		deleteEmoji:   strings.Trim(p.DeleteEmoji, ":"),
		maxConcurrent: max(p.MaxConcurrent, 1),
		metrics:       p.Metrics,
		log:           p.Log.With().Str("component", "bot").Logger(),
	}
}

// Run handles events until ctx is done, then waits for in-flight handlers.
// Each event gets its own goroutine; when MaxConcurrent handlers are busy,
// reading further events blocks.
func (b *Bot) Run(ctx context.Context) error {
	var handlers errgroup.Group
	handlers.SetLimit(b.maxConcurrent)
	err := b.source.Run(ctx, func(evt platform.Event) {
		b.metrics.GatewayEvents.WithLabelValues(platform.EventType(evt)).Inc()
		// Replies to confirmation prompts are handed over inline so they
		// can't queue behind the handler that is waiting for them.
		if created, ok := evt.(*platform.MessageCreated); ok && b.waiter.Deliver(created.Message) {
			return
		}
		handlers.Go(func() error {
			b.handleEvent(ctx, evt)
			return nil
		})
	})
	_ = handlers.Wait()
	return err
}

func (b *Bot) handleEvent(ctx context.Context, evt platform.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Any("panic", r).
				Bytes("stack", debug.Stack()).
				Str("event_type", platform.EventType(evt)).
				Msg("Panic while handling event")
		}
	}()
	switch evt := evt.(type) {
	case *platform.MessageCreated:
		b.handleMessage(ctx, evt.Message)
	case *platform.ReactionAdded:
		b.handleReaction(ctx, evt)
	case *platform.MessageDeleted:
		b.handleDeleted(ctx, evt)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *platform.Message) {
	if b.commands.Handle(ctx, msg) {
		return
	}
	log := b.log.With().Str("post_id", msg.ID).Str("channel_id", msg.ChannelID).Logger()
	proxied, err := b.proxier.HandleMessage(ctx, msg)
	if err != nil {
		if usererr.IsUserError(err) {
			log.Debug().Err(err).Bool("proxied", proxied).Msg("Proxy attempt returned user error")
		} else {
			log.Err(err).Bool("proxied", proxied).Msg("Failed to proxy message")
		}
		b.reply(ctx, log, msg.ChannelID, msg.RootID, usererr.Message(err))
	}
}

func (b *Bot) handleReaction(ctx context.Context, evt *platform.ReactionAdded) {
	if evt.Emoji != b.deleteEmoji {
		return
	}
	log := b.log.With().Str("post_id", evt.MessageID).Str("user_id", evt.UserID).Logger()
	deleted, err := b.deleter.TryDelete(ctx, evt.MessageID, evt.UserID)
	if err != nil {
		log.Err(err).Msg("Failed to delete proxied message")
		if usererr.IsUserError(err) {
			b.reply(ctx, log, evt.ChannelID, "", usererr.Message(err))
		}
	} else if deleted {
		log.Debug().Msg("Deleted proxied message on reaction")
	}
}

func (b *Bot) handleDeleted(ctx context.Context, evt *platform.MessageDeleted) {
	forgotten, err := b.deleter.HandleDeleted(ctx, evt.MessageID, evt.Content)
	if err != nil {
		b.log.Err(err).Str("post_id", evt.MessageID).Msg("Failed to clean up deleted message")
	} else if forgotten {
		b.log.Debug().Str("post_id", evt.MessageID).Msg("Forgot deleted proxied message")
	}
}

func (b *Bot) reply(ctx context.Context, log zerolog.Logger, channelID, rootID, text string) {
	_, err := b.replier.SendMessage(ctx, channelID, &platform.OutgoingMessage{
		Content: ":x: " + text,
		RootID:  rootID,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to send error reply")
	}
}
