// Copyright 2024-2026 Aiku AI

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
	"github.com/aiku/mattermost-proxybot/pkg/proxytags"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

var (
	errNotTeamAdmin = usererr.New(usererr.Permission, "You must be a team administrator to change the log channel.")
	errNoTeam       = usererr.New(usererr.InvalidInput, "This command only works in a team channel.")
)

func (p *Processor) lookupUser(ev *Event, ref string) (*platform.User, error) {
	user, err := p.client.GetUserByUsername(ev.Ctx, ref)
	if errors.Is(err, platform.ErrNotFound) {
		return nil, usererr.Newf(usererr.NotFound, "User %s not found.", ref)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// messageIDFromRef accepts a post id or a permalink ending in one.
func messageIDFromRef(ref string) string {
	ref = strings.Trim(strings.TrimSpace(ref), "<>")
	ref = strings.TrimSuffix(ref, "/")
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		ref = ref[i+1:]
	}
	return ref
}

func (p *Processor) cmdMessage(ev *Event) error {
	if ev.Args.Empty() {
		return usererr.Invalid("Give the ID or link of a proxied message.")
	}
	info, err := p.systems.LookupMessage(ev.Ctx, messageIDFromRef(ev.Args.Pop()))
	if err != nil {
		return err
	}
	sender := "`" + info.SenderID + "`"
	if user, err := p.client.GetUser(ev.Ctx, info.SenderID); err == nil {
		sender = "@" + user.Username
	} else {
		ev.log.Debug().Err(err).Str("sender_id", info.SenderID).Msg("Failed to get message sender")
	}
	systemName := info.SystemName
	if systemName == "" {
		systemName = info.SystemHID
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "#### %s\n", proxytags.JoinName(info.MemberName, info.SystemTag))
	fmt.Fprintf(&sb, "**Message:** %s\n", p.client.MessageLink(info.MessageID))
	fmt.Fprintf(&sb, "**Member:** %s (`%s`)\n", info.MemberName, info.MemberHID)
	fmt.Fprintf(&sb, "**System:** %s (`%s`)\n", systemName, info.SystemHID)
	fmt.Fprintf(&sb, "**Sent by:** %s\n", sender)
	if info.Content != "" {
		fmt.Fprintf(&sb, "**Content:** %s", info.Content)
	}
	ev.Reply("%s", strings.TrimSuffix(sb.String(), "\n"))
	return nil
}

func (p *Processor) cmdLog(ev *Event) error {
	channel, err := p.client.GetChannel(ev.Ctx, ev.Message.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	} else if channel.TeamID == "" {
		return errNoTeam
	}
	teamID := channel.TeamID
	admin, err := p.client.IsTeamAdmin(ev.Ctx, teamID, ev.Message.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to check team role: %w", err)
	} else if !admin {
		return errNotTeamAdmin
	}

	if ev.Args.Empty() || ev.Args.MatchClear() {
		if err = p.db.Server.SetLogChannel(ev.Ctx, teamID, ""); err != nil {
			return fmt.Errorf("failed to clear log channel: %w", err)
		}
		ev.ReplyOK("Log channel cleared.")
		return nil
	}

	target, err := p.lookupChannel(ev, teamID, ev.Args.Pop())
	if err != nil {
		return err
	}
	// Post first, so a channel the bot can't write to is never stored.
	_, err = p.client.SendMessage(ev.Ctx, target.ID, &platform.OutgoingMessage{
		Content: "Proxied messages in this team will be logged here.",
	})
	if errors.Is(err, platform.ErrForbidden) || errors.Is(err, platform.ErrNotFound) {
		return usererr.Newf(usererr.Permission, "I can't post in ~%s. Add the bot account to the channel and try again.", target.Name).WithCause(err)
	} else if err != nil {
		return fmt.Errorf("failed to post in log channel: %w", err)
	}
	if err = p.db.Server.SetLogChannel(ev.Ctx, teamID, target.ID); err != nil {
		return fmt.Errorf("failed to set log channel: %w", err)
	}
	ev.log.Info().Str("team_id", teamID).Str("log_channel_id", target.ID).Msg("Log channel changed")
	ev.ReplyOK("Proxied messages will now be logged to ~%s.", target.Name)
	return nil
}

// lookupChannel resolves ~name or a channel id within the team.
func (p *Processor) lookupChannel(ev *Event, teamID, ref string) (*platform.Channel, error) {
	var target *platform.Channel
	var err error
	if strings.HasPrefix(ref, "~") {
		target, err = p.client.GetChannelByName(ev.Ctx, teamID, ref)
	} else {
		target, err = p.client.GetChannel(ev.Ctx, ref)
		if errors.Is(err, platform.ErrNotFound) || errors.Is(err, platform.ErrForbidden) {
			target, err = p.client.GetChannelByName(ev.Ctx, teamID, ref)
		}
	}
	if errors.Is(err, platform.ErrNotFound) || errors.Is(err, platform.ErrForbidden) {
		return nil, usererr.Newf(usererr.NotFound, "Channel %s not found, or I can't see it.", ref)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	if target.TeamID != teamID {
		return nil, usererr.Invalid("That channel isn't in this team.")
	}
	return target, nil
}
