// Copyright 2024-2026 Aiku AI

package platform

// Event is something that happened on the platform that the bot reacts to.
type Event interface {
	eventType() string
}

// MessageCreated is a new message in a channel the bot can see.
type MessageCreated struct {
	Message *Message
}

// ReactionAdded is a reaction put on a message.
type ReactionAdded struct {
	UserID    string
	ChannelID string
	MessageID string
	Emoji     string
}

// MessageDeleted is a message removed by anyone, including the bot.
type MessageDeleted struct {
	ChannelID string
	MessageID string
	Content   string
}

func (*MessageCreated) eventType() string { return "message_created" }
func (*ReactionAdded) eventType() string  { return "reaction_added" }
func (*MessageDeleted) eventType() string { return "message_deleted" }

// EventType names an event for logs and metrics.
func EventType(evt Event) string {
	return evt.eventType()
}
