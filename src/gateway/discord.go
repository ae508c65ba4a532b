package gateway

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Discord implements Messenger and ChannelDirectory on a guild. Private
// channels are plain text channels hidden from @everyone; membership is
// expressed through per-user permission overwrites, which keeps
// ListMembers consistent with how InviteUsers grants access.
type Discord struct {
	session *discordgo.Session
	guildID string
	botID   string
}

func NewDiscord(session *discordgo.Session, guildID, botID string) *Discord {
	return &Discord{session: session, guildID: guildID, botID: botID}
}

const memberPerms = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory

func (d *Discord) Post(channelID string, msg Message) error {
	if len(msg.Buttons) == 0 {
		_, err := d.session.ChannelMessageSend(channelID, msg.Text)
		return err
	}

	var row []discordgo.MessageComponent
	for _, b := range msg.Buttons {
		row = append(row, discordgo.Button{
			Label:    b.Label,
			Style:    buttonStyle(b.Style),
			CustomID: b.CustomID,
		})
	}
	_, err := d.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    msg.Text,
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: row}},
	})
	return err
}

func (d *Discord) PostDM(userID string, text string) error {
	ch, err := d.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	_, err = d.session.ChannelMessageSend(ch.ID, text)
	return err
}

func (d *Discord) CreatePrivateChannel(name string) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   d.guildID, // @everyone shares the guild id
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    d.botID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberPerms | discordgo.PermissionManageChannels,
		},
	}
	ch, err := d.session.GuildChannelCreateComplex(d.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (d *Discord) InviteUsers(channelID string, userIDs []string) error {
	for _, id := range userIDs {
		err := d.session.ChannelPermissionSet(channelID, id,
			discordgo.PermissionOverwriteTypeMember, memberPerms, 0)
		if err != nil {
			return fmt.Errorf("invite %s: %w", id, err)
		}
	}
	return nil
}

func (d *Discord) RemoveUser(channelID, userID string) error {
	return d.session.ChannelPermissionDelete(channelID, userID)
}

// ArchiveChannel locks a channel: member overwrites are dropped and the
// channel is renamed with an archived- prefix so operators can sweep it.
func (d *Discord) ArchiveChannel(channelID string) error {
	ch, err := d.session.Channel(channelID)
	if err != nil {
		return err
	}
	for _, ow := range ch.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeMember && ow.ID != d.botID {
			if err := d.session.ChannelPermissionDelete(channelID, ow.ID); err != nil {
				return err
			}
		}
	}
	if !strings.HasPrefix(ch.Name, "archived-") {
		_, err = d.session.ChannelEdit(channelID, &discordgo.ChannelEdit{
			Name: "archived-" + ch.Name,
		})
	}
	return err
}

func (d *Discord) ListMembers(channelID string) ([]string, error) {
	ch, err := d.session.Channel(channelID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, ow := range ch.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeMember {
			ids = append(ids, ow.ID)
		}
	}
	return ids, nil
}

func buttonStyle(style string) discordgo.ButtonStyle {
	switch style {
	case "danger":
		return discordgo.DangerButton
	case "secondary":
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}
