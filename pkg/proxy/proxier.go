// Copyright 2024-2026 Aiku AI

package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/metrics"
	"github.com/aiku/mattermost-proxybot/pkg/platform"
	"github.com/aiku/mattermost-proxybot/pkg/proxytags"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

// maxSendAttempts bounds sends through a webhook: the first attempt plus one
// retry after a stale cached webhook has been replaced.
const maxSendAttempts = 2

// Proxier reposts messages whose text matches a member's proxy tags.
type Proxier struct {
	db            *database.Database
	client        Client
	resolver      *WebhookResolver
	candidates    *CandidateCache
	logger        *ChannelLogger
	reservedNames []string
	metrics       *metrics.Metrics
	log           zerolog.Logger
}

type ProxierParams struct {
	DB            *database.Database
	Client        Client
	Resolver      *WebhookResolver
	Candidates    *CandidateCache
	Logger        *ChannelLogger
	ReservedNames []string
	Metrics       *metrics.Metrics
	Log           zerolog.Logger
}

func NewProxier(p ProxierParams) *Proxier {
	return &Proxier{
		db:            p.DB,
		client:        p.Client,
		resolver:      p.Resolver,
		candidates:    p.Candidates,
		logger:        p.Logger,
		reservedNames: p.ReservedNames,
		metrics:       p.Metrics,
		log:           p.Log.With().Str("component", "proxier").Logger(),
	}
}

// HandleMessage loads the sender's proxy candidates and tries to proxy msg.
func (p *Proxier) HandleMessage(ctx context.Context, msg *platform.Message) (bool, error) {
	candidates, err := p.candidates.Get(ctx, msg.AuthorID)
	if err != nil {
		return false, err
	} else if len(candidates) == 0 {
		return false, nil
	}
	return p.TryProxy(ctx, msg, candidates)
}

// TryProxy reposts msg as the member whose tags match it and deletes the
// original. It returns true when the message was reposted. A non-nil error
// with a true result means the repost succeeded but the original could not
// be deleted.
func (p *Proxier) TryProxy(ctx context.Context, msg *platform.Message, candidates []*database.ProxyCandidate) (bool, error) {
	candidate, inner, ok := proxytags.Match(candidates, msg.Content)
	if !ok {
		return false, nil
	}
	log := p.log.With().
		Str("post_id", msg.ID).
		Str("channel_id", msg.ChannelID).
		Str("member_hid", candidate.MemberHID).
		Logger()

	channel, err := p.client.GetChannel(ctx, msg.ChannelID)
	if err != nil {
		return false, fmt.Errorf("failed to get channel: %w", err)
	} else if channel.IsPrivateContext() {
		log.Debug().Msg("Not proxying message in private context")
		return false, nil
	}

	inner = proxytags.Sanitize(inner)
	if strings.TrimSpace(inner) == "" && len(msg.Attachments) == 0 {
		log.Debug().Msg("Matched proxy tags but there's nothing to send")
		return false, nil
	}

	name, err := proxytags.DisplayName(candidate.Name, candidate.SystemTag, p.reservedNames)
	if err != nil {
		p.metrics.ProxyFailures.WithLabelValues(metrics.ReasonName).Inc()
		return false, err
	}

	start := time.Now()
	webhookMsg := &platform.WebhookMessage{
		Username:  name,
		AvatarURL: candidate.EffectiveAvatar(),
		Content:   inner,
		RootID:    msg.RootID,
	}
	if len(msg.Attachments) > 0 {
		webhookMsg.File, err = p.client.DownloadAttachment(ctx, msg.Attachments[0])
		if err != nil {
			p.metrics.ProxyFailures.WithLabelValues(metrics.ReasonAttachment).Inc()
			return false, fmt.Errorf("failed to download attachment: %w", err)
		}
	}

	var sent *platform.SentMessage
	err = p.db.DoTxn(ctx, nil, func(ctx context.Context) error {
		sent, err = p.send(ctx, log, channel.ID, webhookMsg)
		if err != nil {
			return err
		}
		err = p.db.Message.Insert(ctx, &database.ProxiedMessage{
			MessageID: sent.ID,
			ChannelID: channel.ID,
			MemberID:  candidate.MemberID,
			SenderID:  msg.AuthorID,
			Content:   inner,
			Created:   sent.CreatedAt,
		})
		if err != nil {
			p.metrics.ProxyFailures.WithLabelValues(metrics.ReasonDatabase).Inc()
			return fmt.Errorf("failed to save proxied message: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	p.metrics.ProxiedMessages.Inc()
	p.metrics.ObserveProxy(start)
	log.Debug().Str("proxied_post_id", sent.ID).Msg("Proxied message")

	deleteErr := p.deleteOriginal(ctx, log, msg)
	p.logger.LogProxied(ctx, &ProxiedEvent{
		Channel:   channel,
		SenderID:  msg.AuthorID,
		Candidate: candidate,
		Content:   inner,
		Sent:      sent,
	})
	return true, deleteErr
}

// send posts through the channel's webhook, replacing the cached webhook and
// trying once more if it turns out to be gone.
func (p *Proxier) send(ctx context.Context, log zerolog.Logger, channelID string, msg *platform.WebhookMessage) (*platform.SentMessage, error) {
	for attempt := 1; ; attempt++ {
		hook, err := p.resolver.Resolve(ctx, channelID)
		if err != nil {
			if usererr.IsUserError(err) {
				p.metrics.ProxyFailures.WithLabelValues(metrics.ReasonPermission).Inc()
			} else {
				p.metrics.ProxyFailures.WithLabelValues(metrics.ReasonWebhook).Inc()
			}
			return nil, err
		}
		sent, err := p.client.ExecuteWebhook(ctx, hook, msg)
		if err == nil {
			return sent, nil
		}
		if !errors.Is(err, platform.ErrUnknownWebhook) || attempt >= maxSendAttempts {
			p.metrics.ProxyFailures.WithLabelValues(metrics.ReasonSend).Inc()
			return nil, fmt.Errorf("failed to send through webhook: %w", err)
		}
		log.Warn().Err(err).Str("webhook_id", hook.ID).Msg("Cached webhook is gone, replacing it")
		p.metrics.WebhookRetries.Inc()
		if err = p.resolver.Invalidate(ctx, channelID); err != nil {
			return nil, err
		}
	}
}

func (p *Proxier) deleteOriginal(ctx context.Context, log zerolog.Logger, msg *platform.Message) error {
	err := p.client.DeleteMessage(ctx, msg.ChannelID, msg.ID)
	switch {
	case err == nil, errors.Is(err, platform.ErrNotFound):
		return nil
	case errors.Is(err, platform.ErrForbidden):
		p.metrics.ProxyFailures.WithLabelValues(metrics.ReasonDeleteOrig).Inc()
		log.Warn().Err(err).Msg("No permission to delete original message")
		return usererr.ErrCannotDeleteMessages.WithCause(err)
	default:
		p.metrics.ProxyFailures.WithLabelValues(metrics.ReasonDeleteOrig).Inc()
		return fmt.Errorf("failed to delete original message: %w", err)
	}
}
