// Copyright 2024-2026 Aiku AI

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aiku/mattermost-proxybot/pkg/bot"
	"github.com/aiku/mattermost-proxybot/pkg/commands"
	"github.com/aiku/mattermost-proxybot/pkg/config"
	"github.com/aiku/mattermost-proxybot/pkg/mattermost"
	"github.com/aiku/mattermost-proxybot/pkg/metrics"
	"github.com/aiku/mattermost-proxybot/pkg/proxy"
	"github.com/aiku/mattermost-proxybot/pkg/system"
)

const shutdownTimeout = 10 * time.Second

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	client := mattermost.NewClient(cfg.Mattermost.ServerURL, cfg.Mattermost.Token, log)
	me, err := client.Connect(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("user_id", me.ID).Str("username", me.Username).Msg("Logged in to Mattermost")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	candidates := proxy.NewCandidateCache(db, cfg.Proxy.CandidateCacheTTL)
	resolver := proxy.NewWebhookResolver(db, client, cfg.Proxy.WebhookName, me.ID, m, log)
	channelLog := proxy.NewChannelLogger(db, client, m, log)
	proxier := proxy.NewProxier(proxy.ProxierParams{
		DB:            db,
		Client:        client,
		Resolver:      resolver,
		Candidates:    candidates,
		Logger:        channelLog,
		ReservedNames: cfg.Proxy.ReservedNames,
		Metrics:       m,
		Log:           log,
	})
	deleter := proxy.NewDeleter(db, client, channelLog, m, log)

	waiter := commands.NewWaiter()
	processor := commands.NewProcessor(commands.Params{
		Prefix:         cfg.Mattermost.CommandPrefix,
		Systems:        system.NewService(db, candidates, log),
		DB:             db,
		Client:         client,
		Waiter:         waiter,
		ConfirmTimeout: cfg.Commands.ConfirmTimeout,
		Metrics:        m,
		Log:            log,
	})

	gateway := mattermost.NewGateway(client, log)
	b := bot.New(bot.Params{
		Source:        gateway,
		Proxier:       proxier,
		Deleter:       deleter,
		Commands:      processor,
		Waiter:        waiter,
		Replier:       client,
		DeleteEmoji:   cfg.Mattermost.DeleteEmoji,
		MaxConcurrent: cfg.Mattermost.MaxConcurrentEvents,
		Metrics:       m,
		Log:           log,
	})

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return b.Run(ctx)
	})
	if cfg.Metrics.Enabled {
		health := func(ctx context.Context) error {
			if !gateway.IsConnected() {
				return errors.New("websocket is not connected")
			}
			if err := db.RawDB.PingContext(ctx); err != nil {
				return fmt.Errorf("database ping failed: %w", err)
			}
			return nil
		}
		srv := metrics.NewServer(cfg.Metrics.Listen, reg, health, resolver, log)
		eg.Go(srv.Start)
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	log.Info().Str("command_prefix", cfg.Mattermost.CommandPrefix).Msg("Bot started")
	err = eg.Wait()
	log.Info().Msg("Bot stopped")
	return err
}
