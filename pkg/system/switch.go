// Copyright 2024-2026 Aiku AI

package system

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

var (
	ErrNoSwitches       = usererr.New(usererr.NotFound, "You haven't registered any switches yet.")
	ErrAlreadyFronting  = usererr.New(usererr.Conflict, "Those members are already fronting.")
	ErrAlreadySwitchOut = usererr.New(usererr.Conflict, "There's already no one in front.")
	ErrMoveIntoFuture   = usererr.New(usererr.InvalidInput, "Can't move switch to a time in the future.")
)

// Front is a switch with its members resolved.
type Front struct {
	Switch  *database.Switch
	Members []*database.Member
	// End is when the next switch happened, or the zero time for the
	// current front.
	End time.Time
}

// RegisterSwitch records that members are now fronting, in the given order.
func (s *Service) RegisterSwitch(ctx context.Context, sys *database.System, members []*database.Member) (*database.Switch, error) {
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		if slices.Contains(ids[:i], m.ID) {
			return nil, usererr.Invalid("%q is listed more than once.", m.Name)
		}
		ids[i] = m.ID
	}
	latest, err := s.latestSwitches(ctx, sys, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) > 0 && slices.Equal(latest[0].Members, ids) {
		if len(ids) == 0 {
			return nil, ErrAlreadySwitchOut
		}
		return nil, ErrAlreadyFronting
	}
	sw := &database.Switch{
		ID:        uuid.New(),
		SystemID:  sys.ID,
		Timestamp: s.now().UTC().Truncate(time.Millisecond),
		Members:   ids,
	}
	if err = s.db.Switch.Insert(ctx, sw); err != nil {
		return nil, fmt.Errorf("failed to insert switch: %w", err)
	}
	return sw, nil
}

// SwitchOut records that nobody is fronting.
func (s *Service) SwitchOut(ctx context.Context, sys *database.System) (*database.Switch, error) {
	latest, err := s.latestSwitches(ctx, sys, 1)
	if err != nil {
		return nil, err
	} else if len(latest) == 0 || len(latest[0].Members) == 0 {
		return nil, ErrAlreadySwitchOut
	}
	return s.RegisterSwitch(ctx, sys, nil)
}

// DeleteLatestSwitch removes the most recent switch and returns it.
func (s *Service) DeleteLatestSwitch(ctx context.Context, sys *database.System) (*database.Switch, error) {
	latest, err := s.latestSwitches(ctx, sys, 1)
	if err != nil {
		return nil, err
	} else if len(latest) == 0 {
		return nil, ErrNoSwitches
	}
	if err = s.db.Switch.Delete(ctx, latest[0].ID); err != nil {
		return nil, fmt.Errorf("failed to delete switch: %w", err)
	}
	return latest[0], nil
}

// CheckSwitchMove validates a new time for the latest switch. previous is
// the time of the switch before it, or the zero time if there is none.
func CheckSwitchMove(target, now, previous time.Time) error {
	if target.After(now) {
		return ErrMoveIntoFuture
	}
	if !previous.IsZero() && target.Before(previous) {
		return usererr.Invalid("Can't move switch to before the previous switch at %s, as it would mix up the switch order.",
			previous.Format(time.DateTime+" MST"))
	}
	return nil
}

// MoveLatestSwitch changes the time of the most recent switch. It can't be
// moved into the future or before the switch preceding it.
func (s *Service) MoveLatestSwitch(ctx context.Context, sys *database.System, target time.Time) (*database.Switch, error) {
	target = target.UTC().Truncate(time.Millisecond)
	latest, err := s.latestSwitches(ctx, sys, 2)
	if err != nil {
		return nil, err
	} else if len(latest) == 0 {
		return nil, ErrNoSwitches
	}
	var previous time.Time
	if len(latest) > 1 {
		previous = latest[1].Timestamp
	}
	if err = CheckSwitchMove(target, s.now(), previous); err != nil {
		return nil, err
	}
	if err = s.db.Switch.Move(ctx, latest[0].ID, target); err != nil {
		return nil, fmt.Errorf("failed to move switch: %w", err)
	}
	moved := *latest[0]
	moved.Timestamp = target
	return &moved, nil
}

// LatestSwitch returns the most recent switch, or ErrNoSwitches.
func (s *Service) LatestSwitch(ctx context.Context, sys *database.System) (*database.Switch, error) {
	latest, err := s.latestSwitches(ctx, sys, 1)
	if err != nil {
		return nil, err
	} else if len(latest) == 0 {
		return nil, ErrNoSwitches
	}
	return latest[0], nil
}

// CurrentFront returns who is fronting now. An empty member list with a
// non-nil switch means the system switched out.
func (s *Service) CurrentFront(ctx context.Context, sys *database.System) (*Front, error) {
	history, err := s.FrontHistory(ctx, sys, 1)
	if err != nil {
		return nil, err
	} else if len(history) == 0 {
		return nil, ErrNoSwitches
	}
	return history[0], nil
}

// FrontHistory returns up to limit fronts, newest first.
func (s *Service) FrontHistory(ctx context.Context, sys *database.System, limit int) ([]*Front, error) {
	switches, err := s.latestSwitches(ctx, sys, limit)
	if err != nil {
		return nil, err
	}
	members, err := s.ListMembers(ctx, sys)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*database.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	fronts := make([]*Front, len(switches))
	for i, sw := range switches {
		front := &Front{Switch: sw, Members: make([]*database.Member, 0, len(sw.Members))}
		for _, id := range sw.Members {
			if m, ok := byID[id]; ok {
				front.Members = append(front.Members, m)
			}
		}
		if i > 0 {
			front.End = switches[i-1].Timestamp
		}
		fronts[i] = front
	}
	return fronts, nil
}

func (s *Service) latestSwitches(ctx context.Context, sys *database.System, limit int) ([]*database.Switch, error) {
	switches, err := s.db.Switch.GetLatest(ctx, sys.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get switches: %w", err)
	}
	return switches, nil
}
