// Copyright 2024-2026 Aiku AI

// Package system implements the operations accounts perform on their own
// systems, members and switches.
package system

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

const hidLength = 5

var (
	ErrNoSystem        = usererr.New(usererr.NotFound, "You don't have a system registered. Create one with the `system new` command.")
	ErrAlreadyRegistered = usererr.New(usererr.Conflict, "You already have a system registered. Delete it or unlink your account from it first.")
	ErrMemberNotFound  = usererr.New(usererr.NotFound, "Member not found. Check the name or ID and try again.")
	ErrMessageNotFound = usererr.New(usererr.NotFound, "Proxied message not found.")
)

// CandidateInvalidator drops cached proxy candidates of accounts whose
// members or system changed.
type CandidateInvalidator interface {
	Invalidate(accountIDs ...string)
}

type Service struct {
	db    *database.Database
	cache CandidateInvalidator
	log   zerolog.Logger

	now func() time.Time
}

func NewService(db *database.Database, cache CandidateInvalidator, log zerolog.Logger) *Service {
	return &Service{
		db:    db,
		cache: cache,
		log:   log.With().Str("component", "system_service").Logger(),
		now:   time.Now,
	}
}

// Get returns the system linked to an account, or ErrNoSystem.
func (s *Service) Get(ctx context.Context, accountID string) (*database.System, error) {
	sys, err := s.db.System.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get system: %w", err)
	} else if sys == nil {
		return nil, ErrNoSystem
	}
	return sys, nil
}

// GetByRef finds any system by hid, or by a linked account id.
func (s *Service) GetByRef(ctx context.Context, ref string) (*database.System, error) {
	sys, err := s.db.System.GetByHID(ctx, ref)
	if err == nil && sys == nil {
		sys, err = s.db.System.GetByAccount(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get system: %w", err)
	} else if sys == nil {
		return nil, usererr.New(usererr.NotFound, "System not found.")
	}
	return sys, nil
}

// LookupMessage returns the details of a proxied message.
func (s *Service) LookupMessage(ctx context.Context, messageID string) (*database.MessageInfo, error) {
	info, err := s.db.Message.Get(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get proxied message: %w", err)
	} else if info == nil {
		return nil, ErrMessageNotFound
	}
	return info, nil
}

// invalidate drops the cached proxy candidates of every account linked to
// the system, plus any extra accounts given.
func (s *Service) invalidate(ctx context.Context, systemID uuid.UUID, extra ...string) {
	if s.cache == nil {
		return
	}
	accounts, err := s.db.System.GetAccounts(ctx, systemID)
	if err != nil {
		s.log.Warn().Err(err).Stringer("system_id", systemID).Msg("Failed to get accounts for cache invalidation")
	}
	s.cache.Invalidate(append(accounts, extra...)...)
}

func randomHID() string {
	b := make([]byte, hidLength)
	for i := range b {
		b[i] = byte('a' + rand.N(26))
	}
	return string(b)
}

// newHID generates hids until exists reports one as unused.
func newHID(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for {
		hid := randomHID()
		taken, err := exists(ctx, hid)
		if err != nil {
			return "", fmt.Errorf("failed to check hid: %w", err)
		} else if !taken {
			return hid, nil
		}
	}
}
