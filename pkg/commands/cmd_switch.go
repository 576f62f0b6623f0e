// Copyright 2024-2026 Aiku AI

package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/system"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

const (
	defaultHistoryLength = 10
	maxHistoryLength     = 100
)

func memberNames(members []*database.Member) string {
	if len(members) == 0 {
		return "nobody"
	}
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return strings.Join(names, ", ")
}

func (p *Processor) cmdSwitch(ev *Event) error {
	sys, err := ev.System()
	if err != nil {
		return err
	}
	switch {
	case ev.Args.Empty():
		return p.frontHistory(ev, sys)
	case ev.Args.Match("out"):
		if _, err = p.systems.SwitchOut(ev.Ctx, sys); err != nil {
			return err
		}
		ev.ReplyOK("Switch-out registered.")
		return nil
	case ev.Args.Match("move", "shift", "offset"):
		return p.switchMove(ev, sys)
	case ev.Args.Match("delete", "remove", "erase", "cancel"):
		return p.switchDelete(ev, sys)
	}

	members, err := p.systems.GetMembers(ev.Ctx, sys, ev.Args.All())
	if err != nil {
		return err
	}
	if _, err = p.systems.RegisterSwitch(ev.Ctx, sys, members); err != nil {
		return err
	}
	if len(members) == 1 {
		ev.ReplyOK("Switch registered. Current fronter is now %s.", members[0].Name)
	} else {
		ev.ReplyOK("Switch registered. Current fronters are now %s.", memberNames(members))
	}
	return nil
}

func (p *Processor) switchMove(ev *Event, sys *database.System) error {
	if ev.Args.Empty() {
		return usererr.Invalid("Give a time to move the switch to, like `%sswitch move 30m ago`.", p.prefix)
	}
	loc := sys.Location()
	now := p.now()
	target, err := ParseTime(ev.Args.Remainder(), now, loc)
	if err != nil {
		return err
	}
	history, err := p.systems.FrontHistory(ev.Ctx, sys, 2)
	if err != nil {
		return err
	} else if len(history) == 0 {
		return system.ErrNoSwitches
	}
	latest := history[0]
	var previous time.Time
	if len(history) > 1 {
		previous = history[1].Switch.Timestamp
	}
	if err = system.CheckSwitchMove(target, now, previous); err != nil {
		return err
	}
	prompt := fmt.Sprintf("This will move the latest switch (%s) from %s (%s ago) to %s (%s ago). Reply `yes` to confirm.",
		memberNames(latest.Members),
		FormatTime(latest.Switch.Timestamp, loc), FormatDuration(now.Sub(latest.Switch.Timestamp)),
		FormatTime(target, loc), FormatDuration(now.Sub(target)))
	if err = ev.Confirm(ev.Message.AuthorID, prompt, "yes", "Switch move cancelled."); err != nil {
		return err
	}
	if _, err = p.systems.MoveLatestSwitch(ev.Ctx, sys, target); err != nil {
		return err
	}
	ev.ReplyOK("Switch moved to %s (%s ago).", FormatTime(target, loc), FormatDuration(now.Sub(target)))
	return nil
}

func (p *Processor) switchDelete(ev *Event, sys *database.System) error {
	history, err := p.systems.FrontHistory(ev.Ctx, sys, 2)
	if err != nil {
		return err
	} else if len(history) == 0 {
		return system.ErrNoSwitches
	}
	now := p.now()
	latest := history[0]
	prompt := fmt.Sprintf("This will delete the latest switch (%s, %s ago).", memberNames(latest.Members), FormatDuration(now.Sub(latest.Switch.Timestamp)))
	if len(history) > 1 {
		prompt += fmt.Sprintf(" The next latest switch is %s (%s ago).", memberNames(history[1].Members), FormatDuration(now.Sub(history[1].Switch.Timestamp)))
	} else {
		prompt += " You have no other switches logged."
	}
	prompt += " Reply `yes` to confirm."
	if err = ev.Confirm(ev.Message.AuthorID, prompt, "yes", "Switch deletion cancelled."); err != nil {
		return err
	}
	if _, err = p.systems.DeleteLatestSwitch(ev.Ctx, sys); err != nil {
		return err
	}
	if len(history) > 1 {
		ev.ReplyOK("Switch deleted. The latest switch is now %s (%s ago).", memberNames(history[1].Members), FormatDuration(now.Sub(history[1].Switch.Timestamp)))
	} else {
		ev.ReplyOK("Switch deleted. You now have no logged switches.")
	}
	return nil
}

func (p *Processor) cmdFront(ev *Event) error {
	sys, err := ev.System()
	if err != nil {
		return err
	}
	if ev.Args.Match("history", "h") {
		return p.frontHistory(ev, sys)
	}
	front, err := p.systems.CurrentFront(ev.Ctx, sys)
	if err != nil {
		return err
	}
	since := front.Switch.Timestamp
	ago := FormatDuration(p.now().Sub(since))
	if len(front.Members) == 0 {
		ev.Reply("No one is fronting. Switched out at %s (%s ago).", FormatTime(since, sys.Location()), ago)
	} else {
		ev.Reply("**Current fronters:** %s\n**Since:** %s (%s ago)", memberNames(front.Members), FormatTime(since, sys.Location()), ago)
	}
	return nil
}

func (p *Processor) frontHistory(ev *Event, sys *database.System) error {
	limit := defaultHistoryLength
	if !ev.Args.Empty() {
		n, err := strconv.Atoi(ev.Args.Pop())
		if err != nil || n < 1 {
			return usererr.Invalid("The history length must be a positive number.")
		}
		limit = min(n, maxHistoryLength)
	}
	history, err := p.systems.FrontHistory(ev.Ctx, sys, limit)
	if err != nil {
		return err
	} else if len(history) == 0 {
		return system.ErrNoSwitches
	}
	loc := sys.Location()
	now := p.now()
	var sb strings.Builder
	fmt.Fprintf(&sb, "#### Front history of %s\n", sys.DisplayName())
	for _, front := range history {
		start := front.Switch.Timestamp
		fmt.Fprintf(&sb, "- **%s** at %s (%s ago", memberNames(front.Members), FormatTime(start, loc), FormatDuration(now.Sub(start)))
		if !front.End.IsZero() {
			fmt.Fprintf(&sb, ", for %s", FormatDuration(front.End.Sub(start)))
		}
		sb.WriteString(")\n")
	}
	ev.Reply("%s", sb.String())
	return nil
}
