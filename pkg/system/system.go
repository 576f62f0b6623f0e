// Copyright 2024-2026 Aiku AI

package system

import (
	"context"
	"crypto/rand"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/proxytags"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

const (
	tokenLength   = 64
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Create registers a new system and links it to accountID.
func (s *Service) Create(ctx context.Context, accountID, name string) (*database.System, error) {
	if err := checkLength("system name", name, MaxSystemNameLength); err != nil {
		return nil, err
	}
	var sys *database.System
	err := s.db.DoTxn(ctx, nil, func(ctx context.Context) error {
		existing, err := s.db.System.GetByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to check existing system: %w", err)
		} else if existing != nil {
			return ErrAlreadyRegistered
		}
		hid, err := newHID(ctx, s.db.System.HIDExists)
		if err != nil {
			return err
		}
		sys = &database.System{
			ID:      uuid.New(),
			HID:     hid,
			Name:    name,
			UITZ:    "UTC",
			Created: s.now(),
		}
		if err = s.db.System.Insert(ctx, sys); err != nil {
			return fmt.Errorf("failed to insert system: %w", err)
		}
		if err = s.db.System.LinkAccount(ctx, sys.ID, accountID); err != nil {
			return fmt.Errorf("failed to link account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("system_hid", sys.HID).Str("user_id", accountID).Msg("Created system")
	return sys, nil
}

func (s *Service) update(ctx context.Context, sys *database.System, fn func(updated *database.System) error) (*database.System, error) {
	updated := *sys
	if err := fn(&updated); err != nil {
		return nil, err
	}
	if err := s.db.System.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update system: %w", err)
	}
	s.invalidate(ctx, sys.ID)
	return &updated, nil
}

func (s *Service) SetName(ctx context.Context, sys *database.System, name string) (*database.System, error) {
	return s.update(ctx, sys, func(u *database.System) error {
		u.Name = name
		return checkLength("system name", name, MaxSystemNameLength)
	})
}

func (s *Service) SetDescription(ctx context.Context, sys *database.System, description string) (*database.System, error) {
	return s.update(ctx, sys, func(u *database.System) error {
		u.Description = description
		return checkLength("description", description, MaxDescriptionLength)
	})
}

func (s *Service) SetAvatar(ctx context.Context, sys *database.System, avatarURL string) (*database.System, error) {
	return s.update(ctx, sys, func(u *database.System) (err error) {
		u.AvatarURL, err = ValidateAvatarURL(avatarURL)
		return
	})
}

func (s *Service) SetTimezone(ctx context.Context, sys *database.System, tz string) (*database.System, error) {
	return s.update(ctx, sys, func(u *database.System) (err error) {
		u.UITZ, err = ValidateTimezone(tz)
		return
	})
}

// SetTag changes the system tag. It is rejected when the tag wouldn't leave
// room for the name of every member in proxied display names.
func (s *Service) SetTag(ctx context.Context, sys *database.System, tag string) (*database.System, error) {
	if err := checkLength("system tag", tag, MaxSystemTagLength); err != nil {
		return nil, err
	}
	members, err := s.db.Member.GetBySystem(ctx, sys.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	var tooLong []string
	for _, m := range members {
		if !proxytags.CheckNameBudget(m.Name, tag) {
			tooLong = append(tooLong, m.Name)
		}
	}
	if len(tooLong) > 0 {
		return nil, usererr.Invalid("With that tag, these member names would be over the %d character limit: %s. Shorten the tag or rename those members.",
			proxytags.MaxNameLength, formatNames(tooLong))
	}
	return s.update(ctx, sys, func(u *database.System) error {
		u.Tag = tag
		return nil
	})
}

// RegenerateToken replaces the system's API token and returns the new one.
func (s *Service) RegenerateToken(ctx context.Context, sys *database.System) (string, error) {
	updated, err := s.update(ctx, sys, func(u *database.System) error {
		u.Token = newToken()
		return nil
	})
	if err != nil {
		return "", err
	}
	return updated.Token, nil
}

func newToken() string {
	buf := make([]byte, tokenLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf)
}

// LinkAccount links another account to the system. The account must not
// have a system of its own.
func (s *Service) LinkAccount(ctx context.Context, sys *database.System, accountID string) error {
	err := s.db.DoTxn(ctx, nil, func(ctx context.Context) error {
		existing, err := s.db.System.GetByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to check existing system: %w", err)
		} else if existing != nil && existing.ID == sys.ID {
			return usererr.New(usererr.Conflict, "That account is already linked to this system.")
		} else if existing != nil {
			return usererr.New(usererr.Conflict, "That account already has a system registered. It must unlink from it first.")
		}
		if err = s.db.System.LinkAccount(ctx, sys.ID, accountID); err != nil {
			return fmt.Errorf("failed to link account: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, sys.ID)
	return nil
}

// UnlinkAccount removes an account from the system. The last linked account
// can't be unlinked; delete the system instead.
func (s *Service) UnlinkAccount(ctx context.Context, sys *database.System, accountID string) error {
	err := s.db.DoTxn(ctx, nil, func(ctx context.Context) error {
		accounts, err := s.db.System.GetAccounts(ctx, sys.ID)
		if err != nil {
			return fmt.Errorf("failed to get linked accounts: %w", err)
		}
		if !slices.Contains(accounts, accountID) {
			return usererr.New(usererr.NotFound, "That account isn't linked to this system.")
		} else if len(accounts) == 1 {
			return usererr.New(usererr.Conflict, "That's the only account linked to this system, so it can't be unlinked. Delete the system instead.")
		}
		if err = s.db.System.UnlinkAccount(ctx, sys.ID, accountID); err != nil {
			return fmt.Errorf("failed to unlink account: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, sys.ID, accountID)
	return nil
}

// Delete removes the system along with its members, switches and message
// records.
func (s *Service) Delete(ctx context.Context, sys *database.System) error {
	accounts, err := s.db.System.GetAccounts(ctx, sys.ID)
	if err != nil {
		return fmt.Errorf("failed to get linked accounts: %w", err)
	}
	if err = s.db.System.Delete(ctx, sys.ID); err != nil {
		return fmt.Errorf("failed to delete system: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(accounts...)
	}
	s.log.Info().Str("system_hid", sys.HID).Msg("Deleted system")
	return nil
}
