// Package bot is the Discord-facing layer: slash commands, button
// interactions and the channel membership monitor loop.
package bot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/commforge/challengebot/src/components/challenge"
	"github.com/commforge/challengebot/src/components/evaluation"
	"github.com/commforge/challengebot/src/gateway"
	"github.com/commforge/challengebot/src/repo"
)

type Config struct {
	GuildID        string
	AdminUserID    string
	HubChannelID   string
	StartupChannel string
	Challenges     *challenge.Service
	Evaluations    *evaluation.Service
	Monitor        *challenge.Monitor
	Hubs           *repo.Hubs
	Participants   *repo.Participants
	EvalRepo       *repo.Evaluations
	Evaluators     *repo.Evaluators
	Submissions    *repo.Submissions
	Themes         *repo.Themes
	Messenger      gateway.Messenger
}

type Bot struct {
	session *discordgo.Session
	config  Config
	limiter *RateLimiter
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(session *discordgo.Session, config Config) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		session: session,
		config:  config,
		limiter: NewRateLimiter(5 * time.Second),
		ctx:     ctx,
		cancel:  cancel,
	}

	session.AddHandler(b.handleReady)
	session.AddHandler(b.handleInteraction)
	session.AddHandler(b.handleChannelUpdate)

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers

	return b
}

func (b *Bot) Start() error {
	b.limiter.StartCleanup(b.ctx, time.Minute)
	return b.session.Open()
}

func (b *Bot) Stop() {
	b.cancel()
	b.wg.Wait()
	b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Discord bot logged in as %s", event.User.Username)

	if err := b.registerCommands(); err != nil {
		log.Printf("Failed to register commands: %v", err)
	}

	if b.config.StartupChannel != "" {
		msg := "🤖 Challenge bot is online. Start a challenge with /challenge start"
		if err := b.config.Messenger.Post(b.config.StartupChannel, gateway.Message{Text: msg}); err != nil {
			log.Printf("Startup announcement failed: %v", err)
		}
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.config.Monitor.Run(b.ctx, time.Minute)
	}()
}

// handleChannelUpdate reacts to overwrite changes on channels the bot
// manages: anyone who slipped into a challenge channel is checked and
// removed right away rather than waiting for the next sweep.
func (b *Bot) handleChannelUpdate(s *discordgo.Session, event *discordgo.ChannelUpdate) {
	if event.Channel == nil || event.GuildID != b.config.GuildID {
		return
	}
	for _, ow := range event.PermissionOverwrites {
		if ow.Type != discordgo.PermissionOverwriteTypeMember {
			continue
		}
		if action := b.config.Monitor.CheckUser(event.ID, ow.ID); action != nil {
			log.Printf("bot: member check on %s/%s -> %s", event.ID, ow.ID, action.Action)
		}
	}
}
