// Copyright 2024-2026 Aiku AI

package commands

import (
	"fmt"
	"strings"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// editField shows the current value when no argument is given, clears it
// on a clear flag and otherwise sets it to the remaining text.
func editField(ev *Event, field, current string, set func(value string) error) error {
	if ev.Args.Empty() {
		if current == "" {
			ev.Reply("No %s set. To set one, add it after the command.", field)
		} else {
			ev.Reply("The %s is `%s`.", field, current)
		}
		return nil
	}
	var value string
	if !ev.Args.MatchClear() {
		value = ev.Args.Remainder()
	}
	if err := set(value); err != nil {
		return err
	}
	if value == "" {
		ev.ReplyOK("%s cleared.", capitalize(field))
	} else {
		ev.ReplyOK("%s updated.", capitalize(field))
	}
	return nil
}

func (p *Processor) cmdSystem(ev *Event) error {
	switch {
	case ev.Args.Empty():
		sys, err := ev.System()
		if err != nil {
			return err
		}
		return p.showSystem(ev, sys)
	case ev.Args.Match("new", "create", "register"):
		return p.systemNew(ev)
	case ev.Args.Match("list", "members"):
		return p.systemList(ev)
	case ev.Args.Match("link"):
		return p.systemLink(ev)
	case ev.Args.Match("unlink"):
		return p.systemUnlink(ev)
	case ev.Args.Match("delete", "remove", "destroy"):
		return p.systemDelete(ev)
	case ev.Args.Match("token"):
		return p.systemToken(ev)
	}

	if field := ev.Args.Peek(); isSystemField(field) {
		ev.Args.Pop()
		sys, err := ev.System()
		if err != nil {
			return err
		}
		return p.systemEdit(ev, sys, strings.ToLower(field))
	}

	ref := ev.Args.Pop()
	sys, err := p.lookupSystem(ev, ref)
	if err != nil {
		return err
	}
	return p.showSystem(ev, sys)
}

func isSystemField(word string) bool {
	switch strings.ToLower(word) {
	case "name", "rename", "description", "desc", "tag", "avatar", "icon", "timezone", "tz":
		return true
	}
	return false
}

func (p *Processor) systemEdit(ev *Event, sys *database.System, field string) error {
	switch field {
	case "name", "rename":
		return editField(ev, "system name", sys.Name, func(v string) error {
			_, err := p.systems.SetName(ev.Ctx, sys, v)
			return err
		})
	case "description", "desc":
		return editField(ev, "system description", sys.Description, func(v string) error {
			_, err := p.systems.SetDescription(ev.Ctx, sys, v)
			return err
		})
	case "tag":
		return editField(ev, "system tag", sys.Tag, func(v string) error {
			_, err := p.systems.SetTag(ev.Ctx, sys, v)
			return err
		})
	case "avatar", "icon":
		return editField(ev, "system avatar", sys.AvatarURL, func(v string) error {
			_, err := p.systems.SetAvatar(ev.Ctx, sys, v)
			return err
		})
	default:
		return editField(ev, "system time zone", sys.UITZ, func(v string) error {
			_, err := p.systems.SetTimezone(ev.Ctx, sys, v)
			return err
		})
	}
}

// lookupSystem finds a system by hid or by an @username linked to it.
func (p *Processor) lookupSystem(ev *Event, ref string) (*database.System, error) {
	if strings.HasPrefix(ref, "@") {
		user, err := p.lookupUser(ev, ref)
		if err != nil {
			return nil, err
		}
		ref = user.ID
	}
	return p.systems.GetByRef(ev.Ctx, strings.ToLower(ref))
}

func (p *Processor) systemNew(ev *Event) error {
	sys, err := p.systems.Create(ev.Ctx, ev.Message.AuthorID, ev.Args.Remainder())
	if err != nil {
		return err
	}
	ev.ReplyOK("Your system has been created with the ID `%s`. Add a member with `%smember new <name>`.", sys.HID, p.prefix)
	return nil
}

func (p *Processor) showSystem(ev *Event, sys *database.System) error {
	members, err := p.systems.ListMembers(ev.Ctx, sys)
	if err != nil {
		return err
	}
	accounts, err := p.db.System.GetAccounts(ev.Ctx, sys.ID)
	if err != nil {
		return fmt.Errorf("failed to get linked accounts: %w", err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "#### %s\n", sys.DisplayName())
	fmt.Fprintf(&sb, "**ID:** `%s`\n", sys.HID)
	if sys.Tag != "" {
		fmt.Fprintf(&sb, "**Tag:** %s\n", sys.Tag)
	}
	fmt.Fprintf(&sb, "**Linked accounts:** %s\n", strings.Join(p.usernames(ev, accounts), ", "))
	fmt.Fprintf(&sb, "**Members:** %d (see `%ssystem list`)\n", len(members), p.prefix)
	if sys.Description != "" {
		fmt.Fprintf(&sb, "**Description:** %s\n", sys.Description)
	}
	fmt.Fprintf(&sb, "**Created:** %s", FormatTime(sys.Created, sys.Location()))
	ev.Reply("%s", sb.String())
	return nil
}

func (p *Processor) usernames(ev *Event, userIDs []string) []string {
	names := make([]string, len(userIDs))
	for i, id := range userIDs {
		user, err := p.client.GetUser(ev.Ctx, id)
		if err != nil {
			ev.log.Debug().Err(err).Str("linked_user_id", id).Msg("Failed to get linked account")
			names[i] = "`" + id + "`"
			continue
		}
		names[i] = "@" + user.Username
	}
	return names
}

func (p *Processor) systemList(ev *Event) error {
	sys, err := ev.System()
	if err != nil {
		return err
	}
	members, err := p.systems.ListMembers(ev.Ctx, sys)
	if err != nil {
		return err
	} else if len(members) == 0 {
		ev.Reply("This system has no members. Add one with `%smember new <name>`.", p.prefix)
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "#### Members of %s (%d)\n", sys.DisplayName(), len(members))
	for _, m := range members {
		fmt.Fprintf(&sb, "- `%s` **%s**", m.HID, m.Name)
		if tags := m.ProxyTags(); !tags.IsEmpty() {
			fmt.Fprintf(&sb, " (`%s`)", tags.String())
		}
		sb.WriteByte('\n')
	}
	ev.Reply("%s", sb.String())
	return nil
}

func (p *Processor) systemLink(ev *Event) error {
	sys, err := ev.System()
	if err != nil {
		return err
	}
	if ev.Args.Empty() {
		return usererr.Invalid("Mention the account to link, like `%ssystem link @username`.", p.prefix)
	}
	target, err := p.lookupUser(ev, ev.Args.Pop())
	if err != nil {
		return err
	}
	prompt := fmt.Sprintf("@%s, reply `yes` to link your account to the system `%s`.", target.Username, sys.HID)
	if err = ev.Confirm(target.ID, prompt, "yes", "Account link cancelled."); err != nil {
		return err
	}
	if err = p.systems.LinkAccount(ev.Ctx, sys, target.ID); err != nil {
		return err
	}
	ev.ReplyOK("Account @%s linked to the system.", target.Username)
	return nil
}

func (p *Processor) systemUnlink(ev *Event) error {
	sys, err := ev.System()
	if err != nil {
		return err
	}
	accountID, label := ev.Message.AuthorID, "Your account"
	if !ev.Args.Empty() {
		target, err := p.lookupUser(ev, ev.Args.Pop())
		if err != nil {
			return err
		}
		accountID, label = target.ID, "@"+target.Username
	}
	if err = p.systems.UnlinkAccount(ev.Ctx, sys, accountID); err != nil {
		return err
	}
	ev.ReplyOK("%s is no longer linked to the system.", label)
	return nil
}

func (p *Processor) systemDelete(ev *Event) error {
	sys, err := ev.System()
	if err != nil {
		return err
	}
	prompt := fmt.Sprintf("Are you sure you want to delete your system? This removes every member and switch. Reply with your system ID (`%s`) to confirm.", sys.HID)
	if err = ev.Confirm(ev.Message.AuthorID, prompt, sys.HID, "System deletion cancelled."); err != nil {
		return err
	}
	if err = p.systems.Delete(ev.Ctx, sys); err != nil {
		return err
	}
	ev.ReplyOK("System deleted.")
	return nil
}

func (p *Processor) systemToken(ev *Event) error {
	sys, err := ev.System()
	if err != nil {
		return err
	}
	channel, err := p.client.GetChannel(ev.Ctx, ev.Message.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	if !channel.IsPrivateContext() {
		return usererr.Invalid("Your token is secret. Run `%ssystem token` in a direct message with me.", p.prefix)
	}
	token, err := p.systems.RegenerateToken(ev.Ctx, sys)
	if err != nil {
		return err
	}
	ev.ReplyOK("Your new API token is `%s`. Any previous token no longer works.", token)
	return nil
}
