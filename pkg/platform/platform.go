// Copyright 2024-2026 Aiku AI

// Package platform describes the chat platform operations the bot depends on,
// independent of any particular client library.
package platform

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrForbidden is returned when the bot account lacks a permission.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when the target object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownWebhook is returned when sending through a webhook that no
	// longer exists or no longer belongs to the channel.
	ErrUnknownWebhook = errors.New("unknown webhook")
	// ErrWebhookLimit is returned when a channel can't hold another webhook.
	ErrWebhookLimit = errors.New("webhook limit reached")
)

type ChannelType int

const (
	ChannelOpen ChannelType = iota
	ChannelPrivate
	ChannelDirect
	ChannelGroup
)

type Channel struct {
	ID          string
	TeamID      string
	Name        string
	DisplayName string
	Type        ChannelType
}

// IsPrivateContext reports whether the channel is a direct or group message,
// where webhooks can't be created.
func (c *Channel) IsPrivateContext() bool {
	return c.Type == ChannelDirect || c.Type == ChannelGroup
}

type User struct {
	ID          string
	Username    string
	DisplayName string
	IsBot       bool
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

// File is downloaded attachment content.
type File struct {
	Name string
	Data []byte
}

type Message struct {
	ID          string
	ChannelID   string
	AuthorID    string
	Content     string
	Attachments []Attachment
	CreatedAt   time.Time
	// RootID is the thread root for replies.
	RootID string
	// FromWebhook is set for posts made through a webhook identity.
	FromWebhook bool
}

// Webhook is a re-posting identity bound to one channel.
type Webhook struct {
	ID        string
	Token     string
	ChannelID string
	CreatorID string
}

// WebhookMessage is a message sent through a webhook identity.
type WebhookMessage struct {
	Username  string
	AvatarURL string
	Content   string
	File      *File
	RootID    string
}

type SentMessage struct {
	ID          string
	ChannelID   string
	CreatedAt   time.Time
	Attachments []Attachment
}

// Embed is a rich audit record attached to a plain message.
type Embed struct {
	Color      string
	AuthorName string
	AuthorIcon string
	Text       string
	Footer     string
	ThumbURL   string
	Timestamp  time.Time
}

type OutgoingMessage struct {
	Content string
	Embed   *Embed
	RootID  string
}

// Webhooks manages per-channel re-posting identities.
type Webhooks interface {
	ListWebhooks(ctx context.Context, channelID string) ([]*Webhook, error)
	CreateWebhook(ctx context.Context, channelID, name string) (*Webhook, error)
	ExecuteWebhook(ctx context.Context, hook *Webhook, msg *WebhookMessage) (*SentMessage, error)
}

// Messages reads, writes and deletes ordinary messages.
type Messages interface {
	GetMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	SendMessage(ctx context.Context, channelID string, msg *OutgoingMessage) (*SentMessage, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	DownloadAttachment(ctx context.Context, att Attachment) (*File, error)
	MessageLink(messageID string) string
	AttachmentURL(att Attachment) string
}

// Directory looks up users, channels and team roles.
type Directory interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetChannel(ctx context.Context, channelID string) (*Channel, error)
	GetChannelByName(ctx context.Context, teamID, name string) (*Channel, error)
	IsTeamAdmin(ctx context.Context, teamID, userID string) (bool, error)
}

// Client is the full set of platform operations used by the bot.
type Client interface {
	Webhooks
	Messages
	Directory
	BotUserID() string
}
