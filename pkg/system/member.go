// Copyright 2024-2026 Aiku AI

package system

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/proxytags"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

func checkMemberName(name, tag string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return usererr.Invalid("Member names can't be empty.")
	}
	if !proxytags.CheckNameBudget(name, tag) {
		if tag == "" {
			return usererr.Invalid("The member name %q is over the %d character limit. Shorten the member name.", name, proxytags.MaxNameLength)
		}
		return usererr.Invalid("The member name %q plus the system tag %q is over the %d character limit. Shorten the member name or the system tag.",
			name, tag, proxytags.MaxNameLength)
	}
	return nil
}

// AddMember creates a member in the system.
func (s *Service) AddMember(ctx context.Context, sys *database.System, name string) (*database.Member, error) {
	name = strings.TrimSpace(name)
	if err := checkMemberName(name, sys.Tag); err != nil {
		return nil, err
	}
	count, err := s.db.Member.CountBySystem(ctx, sys.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	} else if count >= MaxMembers {
		return nil, usererr.Newf(usererr.Conflict, "Your system has reached the limit of %d members. Delete a member before adding another.", MaxMembers)
	}
	hid, err := newHID(ctx, s.db.Member.HIDExists)
	if err != nil {
		return nil, err
	}
	m := &database.Member{
		ID:       uuid.New(),
		HID:      hid,
		SystemID: sys.ID,
		Name:     name,
		Created:  s.now(),
	}
	if err = s.db.Member.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to insert member: %w", err)
	}
	s.log.Debug().Str("system_hid", sys.HID).Str("member_hid", m.HID).Msg("Added member")
	return m, nil
}

// GetMember finds a member of the system by hid or by name.
func (s *Service) GetMember(ctx context.Context, sys *database.System, ref string) (*database.Member, error) {
	ref = strings.TrimSpace(ref)
	m, err := s.db.Member.GetByHID(ctx, strings.ToLower(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if m == nil || m.SystemID != sys.ID {
		if m, err = s.db.Member.GetByName(ctx, sys.ID, ref); err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}
	}
	if m == nil {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

// GetMembers resolves several member references, failing on the first one
// that doesn't exist.
func (s *Service) GetMembers(ctx context.Context, sys *database.System, refs []string) ([]*database.Member, error) {
	members := make([]*database.Member, 0, len(refs))
	for _, ref := range refs {
		m, err := s.GetMember(ctx, sys, ref)
		if err != nil {
			if errors.Is(err, ErrMemberNotFound) {
				return nil, usererr.Newf(usererr.NotFound, "Member %q not found.", ref)
			}
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (s *Service) ListMembers(ctx context.Context, sys *database.System) ([]*database.Member, error) {
	members, err := s.db.Member.GetBySystem(ctx, sys.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	return members, nil
}

func (s *Service) updateMember(ctx context.Context, m *database.Member, fn func(updated *database.Member) error) (*database.Member, error) {
	updated := *m
	if err := fn(&updated); err != nil {
		return nil, err
	}
	if err := s.db.Member.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	s.invalidate(ctx, m.SystemID)
	return &updated, nil
}

func (s *Service) SetMemberName(ctx context.Context, sys *database.System, m *database.Member, name string) (*database.Member, error) {
	return s.updateMember(ctx, m, func(u *database.Member) error {
		u.Name = strings.TrimSpace(name)
		return checkMemberName(u.Name, sys.Tag)
	})
}

func (s *Service) SetMemberDescription(ctx context.Context, m *database.Member, description string) (*database.Member, error) {
	return s.updateMember(ctx, m, func(u *database.Member) error {
		u.Description = description
		return checkLength("description", description, MaxDescriptionLength)
	})
}

func (s *Service) SetMemberPronouns(ctx context.Context, m *database.Member, pronouns string) (*database.Member, error) {
	return s.updateMember(ctx, m, func(u *database.Member) error {
		u.Pronouns = strings.TrimSpace(pronouns)
		return checkLength("pronouns", u.Pronouns, MaxPronounsLength)
	})
}

func (s *Service) SetMemberColor(ctx context.Context, m *database.Member, color string) (*database.Member, error) {
	return s.updateMember(ctx, m, func(u *database.Member) (err error) {
		u.Color, err = NormalizeColor(color)
		return
	})
}

func (s *Service) SetMemberBirthdate(ctx context.Context, m *database.Member, birthdate string) (*database.Member, error) {
	return s.updateMember(ctx, m, func(u *database.Member) (err error) {
		u.Birthday, err = ParseBirthdate(birthdate)
		return
	})
}

func (s *Service) SetMemberAvatar(ctx context.Context, m *database.Member, avatarURL string) (*database.Member, error) {
	return s.updateMember(ctx, m, func(u *database.Member) (err error) {
		u.AvatarURL, err = ValidateAvatarURL(avatarURL)
		return
	})
}

// SetMemberProxy sets a member's proxy tags from an example message such as
// "[text]". An empty example clears the tags.
func (s *Service) SetMemberProxy(ctx context.Context, m *database.Member, example string) (*database.Member, error) {
	return s.updateMember(ctx, m, func(u *database.Member) error {
		if strings.TrimSpace(example) == "" {
			u.Prefix, u.Suffix = "", ""
			return nil
		}
		tags, err := proxytags.ParseExample(example)
		if err != nil {
			return err
		} else if tags.IsEmpty() {
			return usererr.Invalid("Proxy tags need a prefix or a suffix around 'text', like `[text]`.")
		}
		u.Prefix, u.Suffix = tags.Prefix, tags.Suffix
		return nil
	})
}

// DeleteMember removes a member. Messages proxied as the member stay on the
// platform but are no longer tracked.
func (s *Service) DeleteMember(ctx context.Context, m *database.Member) error {
	if err := s.db.Member.Delete(ctx, m.ID); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	s.invalidate(ctx, m.SystemID)
	s.log.Debug().Str("member_hid", m.HID).Msg("Deleted member")
	return nil
}
