// Copyright 2024-2026 Aiku AI

// Package commands parses and runs the prefixed text commands accounts use
// to manage their systems.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-proxybot/pkg/database"
	"github.com/aiku/mattermost-proxybot/pkg/metrics"
	"github.com/aiku/mattermost-proxybot/pkg/platform"
	"github.com/aiku/mattermost-proxybot/pkg/system"
	"github.com/aiku/mattermost-proxybot/pkg/usererr"
)

const (
	okPrefix    = ":white_check_mark: "
	errorPrefix = ":x: "
	warnPrefix  = ":warning: "
)

// Client is the part of the platform commands talk to.
type Client interface {
	platform.Directory
	SendMessage(ctx context.Context, channelID string, msg *platform.OutgoingMessage) (*platform.SentMessage, error)
	MessageLink(messageID string) string
}

type Command struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	Func    func(ev *Event) error
}

type Params struct {
	Prefix         string
	Systems        *system.Service
	DB             *database.Database
	Client         Client
	Waiter         *Waiter
	ConfirmTimeout time.Duration
	Metrics        *metrics.Metrics
	Log            zerolog.Logger
}

// Processor dispatches messages starting with the command prefix.
type Processor struct {
	prefix         string
	systems        *system.Service
	db             *database.Database
	client         Client
	waiter         *Waiter
	confirmTimeout time.Duration
	metrics        *metrics.Metrics
	log            zerolog.Logger

	commands map[string]*Command
	list     []*Command
	now      func() time.Time
}

func NewProcessor(p Params) *Processor {
	proc := &Processor{
		prefix:         p.Prefix,
		systems:        p.Systems,
		db:             p.DB,
		client:         p.Client,
		waiter:         p.Waiter,
		confirmTimeout: p.ConfirmTimeout,
		metrics:        p.Metrics,
		log:            p.Log.With().Str("component", "commands").Logger(),
		commands:       make(map[string]*Command),
		now:            time.Now,
	}
	proc.register(
		&Command{Name: "help", Aliases: []string{"commands"}, Usage: "help", Help: "Show this list.", Func: proc.cmdHelp},
		&Command{Name: "system", Aliases: []string{"s"}, Usage: "system [new|name|description|tag|avatar|timezone|link|unlink|list|token|delete]", Help: "Show or edit your system.", Func: proc.cmdSystem},
		&Command{Name: "member", Aliases: []string{"m"}, Usage: "member new <name> | member <member> [name|description|pronouns|color|birthdate|avatar|proxy|delete]", Help: "Register, show or edit a member.", Func: proc.cmdMember},
		&Command{Name: "switch", Aliases: []string{"sw"}, Usage: "switch <member...> | switch out | switch move <time> | switch delete", Help: "Record who is fronting.", Func: proc.cmdSwitch},
		&Command{Name: "front", Aliases: []string{"f", "fronter", "fronters"}, Usage: "front [history [count]]", Help: "Show who is fronting now, or recent switches.", Func: proc.cmdFront},
		&Command{Name: "message", Aliases: []string{"msg"}, Usage: "message <post id or link>", Help: "Show who sent a proxied message.", Func: proc.cmdMessage},
		&Command{Name: "log", Usage: "log [~channel]", Help: "Set or clear this team's log channel (team admins only).", Func: proc.cmdLog},
	)
	return proc
}

func (p *Processor) register(cmds ...*Command) {
	for _, cmd := range cmds {
		p.list = append(p.list, cmd)
		p.commands[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			p.commands[alias] = cmd
		}
	}
}

// Prefix is the text commands start with.
func (p *Processor) Prefix() string {
	return p.prefix
}

func (p *Processor) stripPrefix(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if len(content) < len(p.prefix) || !strings.EqualFold(content[:len(p.prefix)], p.prefix) {
		return "", false
	}
	return content[len(p.prefix):], true
}

// IsCommand reports whether msg starts with the command prefix.
func (p *Processor) IsCommand(msg *platform.Message) bool {
	_, ok := p.stripPrefix(msg.Content)
	return ok
}

// Handle runs the command in msg. It returns false without doing anything
// when msg isn't a command.
func (p *Processor) Handle(ctx context.Context, msg *platform.Message) bool {
	rest, ok := p.stripPrefix(msg.Content)
	if !ok {
		return false
	}
	args := NewArgs(rest)
	name := strings.ToLower(args.Pop())
	ev := &Event{
		Ctx:     ctx,
		Message: msg,
		Args:    args,
		proc:    p,
		log: p.log.With().
			Str("post_id", msg.ID).
			Str("user_id", msg.AuthorID).
			Str("command", name).
			Logger(),
	}
	cmd, ok := p.commands[name]
	if name == "" {
		cmd, ok = p.commands["help"], true
	}
	if !ok {
		ev.Reply("%sUnknown command `%s`. For a list of commands, type `%shelp`.", errorPrefix, name, p.prefix)
		return true
	}
	p.metrics.Commands.WithLabelValues(cmd.Name).Inc()
	if err := cmd.Func(ev); err != nil {
		if !usererr.IsUserError(err) {
			ev.log.Err(err).Msg("Command failed")
		} else {
			ev.log.Debug().Err(err).Msg("Command returned user error")
		}
		ev.Reply("%s%s", errorPrefix, usererr.Message(err))
	}
	return true
}

// Event is one command invocation.
type Event struct {
	Ctx     context.Context
	Message *platform.Message
	Args    *Args

	proc *Processor
	log  zerolog.Logger
	sys  *database.System
}

// Reply posts a message in the channel the command was sent in.
func (ev *Event) Reply(format string, args ...any) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	_, err := ev.proc.client.SendMessage(ev.Ctx, ev.Message.ChannelID, &platform.OutgoingMessage{
		Content: text,
		RootID:  ev.Message.RootID,
	})
	if err != nil {
		ev.log.Err(err).Msg("Failed to send command reply")
	}
}

func (ev *Event) ReplyOK(format string, args ...any) {
	ev.Reply(okPrefix+format, args...)
}

// System returns the sender's system, or system.ErrNoSystem.
func (ev *Event) System() (*database.System, error) {
	if ev.sys != nil {
		return ev.sys, nil
	}
	sys, err := ev.proc.systems.Get(ev.Ctx, ev.Message.AuthorID)
	if err != nil {
		return nil, err
	}
	ev.sys = sys
	return sys, nil
}

// Confirm posts prompt and waits for userID to reply with expected, ignoring
// case. A different reply cancels the command with cancelMsg.
func (ev *Event) Confirm(userID, prompt, expected, cancelMsg string) error {
	ev.Reply("%s%s", warnPrefix, prompt)
	reply, err := ev.proc.waiter.Wait(ev.Ctx, ev.Message.ChannelID, userID, ev.proc.confirmTimeout)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(reply.Content), expected) {
		return usererr.New(usererr.Cancelled, cancelMsg)
	}
	return nil
}

func (p *Processor) cmdHelp(ev *Event) error {
	var sb strings.Builder
	sb.WriteString("#### Commands\n")
	cmds := make([]*Command, len(p.list))
	copy(cmds, p.list)
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	for _, cmd := range cmds {
		fmt.Fprintf(&sb, "- `%s%s`: %s\n", p.prefix, cmd.Usage, cmd.Help)
	}
	sb.WriteString("\nTo proxy, set a member's tags with `" + p.prefix + "member <member> proxy [text]` and write `[hello]`.")
	ev.Reply("%s", sb.String())
	return nil
}
