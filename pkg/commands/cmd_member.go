// Copyright 2024-2026 Aiku AI

package commands

import (
	"fmt"
	"strings"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/proxytags"
	"github.com/aiku/mattermost-proxybot/pkg/system"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

func (p *Processor) cmdMember(ev *Event) error {
	sys, err := ev.System()
	if err != nil {
		return err
	}
	switch {
	case ev.Args.Empty():
		return usererr.Invalid("Name a member, or use `%smember new <name>` to register one.", p.prefix)
	case ev.Args.Match("new", "create", "add", "register"):
		return p.memberNew(ev, sys)
	case ev.Args.Match("list"):
		return p.systemList(ev)
	}

	m, err := p.systems.GetMember(ev.Ctx, sys, ev.Args.Pop())
	if err != nil {
		return err
	}
	switch {
	case ev.Args.Empty(), ev.Args.Match("info", "show", "card"):
		p.showMember(ev, sys, m)
		return nil
	case ev.Args.Match("name", "rename"):
		if ev.Args.Empty() {
			ev.Reply("The member's name is `%s`.", m.Name)
			return nil
		}
		name := ev.Args.Remainder()
		if _, err = p.systems.SetMemberName(ev.Ctx, sys, m, name); err != nil {
			return err
		}
		ev.ReplyOK("Member renamed to %q.", name)
		return nil
	case ev.Args.Match("description", "desc"):
		return editField(ev, "member description", m.Description, func(v string) error {
			_, err := p.systems.SetMemberDescription(ev.Ctx, m, v)
			return err
		})
	case ev.Args.Match("pronouns", "pronoun"):
		return editField(ev, "member pronouns", m.Pronouns, func(v string) error {
			_, err := p.systems.SetMemberPronouns(ev.Ctx, m, v)
			return err
		})
	case ev.Args.Match("color", "colour"):
		return editField(ev, "member color", m.Color, func(v string) error {
			_, err := p.systems.SetMemberColor(ev.Ctx, m, v)
			return err
		})
	case ev.Args.Match("birthdate", "birthday", "bd"):
		return editField(ev, "member birthdate", system.FormatBirthdate(m.Birthday), func(v string) error {
			_, err := p.systems.SetMemberBirthdate(ev.Ctx, m, v)
			return err
		})
	case ev.Args.Match("avatar", "icon", "pfp"):
		return editField(ev, "member avatar", m.AvatarURL, func(v string) error {
			_, err := p.systems.SetMemberAvatar(ev.Ctx, m, v)
			return err
		})
	case ev.Args.Match("proxy", "tags"):
		return p.memberProxy(ev, m)
	case ev.Args.Match("delete", "remove", "destroy"):
		return p.memberDelete(ev, m)
	default:
		return usererr.Invalid("Unknown member subcommand `%s`. For a list of commands, type `%shelp`.", ev.Args.Pop(), p.prefix)
	}
}

func (p *Processor) memberNew(ev *Event, sys *database.System) error {
	name := ev.Args.Remainder()
	if name == "" {
		return usererr.Invalid("Give the new member a name, like `%smember new Alice`.", p.prefix)
	}
	m, err := p.systems.AddMember(ev.Ctx, sys, name)
	if err != nil {
		return err
	}
	ev.ReplyOK("Member %q registered with the ID `%s`. Set their proxy tags with `%smember %s proxy [text]`.",
		m.Name, m.HID, p.prefix, m.HID)
	return nil
}

func (p *Processor) showMember(ev *Event, sys *database.System, m *database.Member) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#### %s\n", proxytags.JoinName(m.Name, sys.Tag))
	fmt.Fprintf(&sb, "**ID:** `%s` (system `%s`)\n", m.HID, sys.HID)
	if m.Pronouns != "" {
		fmt.Fprintf(&sb, "**Pronouns:** %s\n", m.Pronouns)
	}
	if m.Birthday != "" {
		fmt.Fprintf(&sb, "**Birthdate:** %s\n", system.FormatBirthdate(m.Birthday))
	}
	if m.Color != "" {
		fmt.Fprintf(&sb, "**Color:** #%s\n", m.Color)
	}
	if tags := m.ProxyTags(); !tags.IsEmpty() {
		fmt.Fprintf(&sb, "**Proxy tags:** `%s`\n", tags.String())
	}
	if m.AvatarURL != "" {
		fmt.Fprintf(&sb, "**Avatar:** %s\n", m.AvatarURL)
	}
	if m.Description != "" {
		fmt.Fprintf(&sb, "**Description:** %s\n", m.Description)
	}
	fmt.Fprintf(&sb, "**Created:** %s", FormatTime(m.Created, sys.Location()))
	ev.Reply("%s", sb.String())
}

func (p *Processor) memberProxy(ev *Event, m *database.Member) error {
	if ev.Args.Empty() {
		if tags := m.ProxyTags(); tags.IsEmpty() {
			ev.Reply("This member has no proxy tags. Set them with `%smember %s proxy [text]`.", p.prefix, m.HID)
		} else {
			ev.Reply("Proxy tags: `%s`", tags.String())
		}
		return nil
	}
	var example string
	if !ev.Args.MatchClear() {
		example = ev.Args.Remainder()
	}
	updated, err := p.systems.SetMemberProxy(ev.Ctx, m, example)
	if err != nil {
		return err
	}
	if tags := updated.ProxyTags(); tags.IsEmpty() {
		ev.ReplyOK("Proxy tags cleared.")
	} else {
		ev.ReplyOK("Proxy tags set to `%s`.", tags.String())
	}
	return nil
}

func (p *Processor) memberDelete(ev *Event, m *database.Member) error {
	prompt := fmt.Sprintf("Are you sure you want to delete %q? Reply with the member's ID (`%s`) to confirm.", m.Name, m.HID)
	if err := ev.Confirm(ev.Message.AuthorID, prompt, m.HID, "Member deletion cancelled."); err != nil {
		return err
	}
	if err := p.systems.DeleteMember(ev.Ctx, m); err != nil {
		return err
	}
	ev.ReplyOK("Member deleted.")
	return nil
}
