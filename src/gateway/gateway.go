// Package gateway defines the chat collaborator contracts the challenge
// components depend on, plus their Discord implementation. Delivery is
// best effort: callers log failures and carry on with their business
// transition.
package gateway

// Button is a structured action element attached to a message.
type Button struct {
	Label    string
	CustomID string
	Value    string
	// Style is primary, danger or secondary.
	Style string
}

// Message is a channel post with optional action buttons.
type Message struct {
	Text    string
	Buttons []Button
}

// Messenger sends messages into channels and direct messages to users.
type Messenger interface {
	Post(channelID string, msg Message) error
	PostDM(userID string, text string) error
}

// ChannelDirectory manages the private working and evaluation spaces.
type ChannelDirectory interface {
	CreatePrivateChannel(name string) (string, error)
	InviteUsers(channelID string, userIDs []string) error
	RemoveUser(channelID, userID string) error
	ArchiveChannel(channelID string) error
	ListMembers(channelID string) ([]string, error)
}
