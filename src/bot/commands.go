package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/commforge/challengebot/src/components/challenge"
	"github.com/commforge/challengebot/src/components/evaluation"
	"github.com/commforge/challengebot/src/types"
)

func (b *Bot) registerCommands() error {
	themes, err := b.config.Themes.ActiveNames()
	if err != nil {
		return fmt.Errorf("load themes: %w", err)
	}
	themeChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(themes))
	for _, t := range themes {
		themeChoices = append(themeChoices, &discordgo.ApplicationCommandOptionChoice{Name: t, Value: t})
	}

	minTeam, maxTeam := float64(2), 6.0
	minHours, maxHours := float64(12), 168.0

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "challenge",
			Description: "Team challenge commands",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "start",
					Description: "Start a new challenge",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "theme",
							Description: "Challenge theme",
							Type:        discordgo.ApplicationCommandOptionString,
							Required:    true,
							Choices:     themeChoices,
						},
						{
							Name:        "team_size",
							Description: "Team size (2-6)",
							Type:        discordgo.ApplicationCommandOptionInteger,
							Required:    true,
							MinValue:    &minTeam,
							MaxValue:    maxTeam,
						},
						{
							Name:        "deadline_hours",
							Description: "Hours until the deadline (12-168, default 48)",
							Type:        discordgo.ApplicationCommandOptionInteger,
							MinValue:    &minHours,
							MaxValue:    maxHours,
						},
						{
							Name:        "difficulty",
							Description: "Difficulty level (default intermediate)",
							Type:        discordgo.ApplicationCommandOptionString,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "beginner", Value: "beginner"},
								{Name: "intermediate", Value: "intermediate"},
								{Name: "advanced", Value: "advanced"},
							},
						},
						{
							Name:        "customization",
							Description: "Extra notes or constraints for the team",
							Type:        discordgo.ApplicationCommandOptionString,
						},
					},
				},
				{
					Name:        "join",
					Description: "Join the current challenge",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "challenge_id",
							Description: "Specific challenge id (defaults to the open one)",
							Type:        discordgo.ApplicationCommandOptionString,
						},
					},
				},
				{
					Name:        "status",
					Description: "Show challenge status",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "challenge_id",
							Description: "Specific challenge id",
							Type:        discordgo.ApplicationCommandOptionString,
						},
					},
				},
				{
					Name:        "github",
					Description: "Submit your project's GitHub repository link",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "link",
							Description: "https://github.com/user/repo",
							Type:        discordgo.ApplicationCommandOptionString,
							Required:    true,
						},
					},
				},
				{
					Name:        "submit",
					Description: "Record your team's submission",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "project_name",
							Description: "Project name",
							Type:        discordgo.ApplicationCommandOptionString,
							Required:    true,
						},
						{
							Name:        "summary",
							Description: "What the project does and how",
							Type:        discordgo.ApplicationCommandOptionString,
							Required:    true,
						},
						{
							Name:        "deliverables",
							Description: "Links to demos, docs or builds",
							Type:        discordgo.ApplicationCommandOptionString,
						},
					},
				},
				{
					Name:        "vote",
					Description: "Cast your jury vote",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "value",
							Description: "Your verdict",
							Type:        discordgo.ApplicationCommandOptionString,
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "true", Value: types.VoteTrue},
								{Name: "false", Value: types.VoteFalse},
							},
						},
					},
				},
			},
		},
		{
			Name:        "reset-user",
			Description: "Admin: release a user stuck in open challenges",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "User to reset",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
			},
		},
	}

	_, err = b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.config.GuildID, commands)
	return err
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	if !b.limiter.CanUse(userID) {
		wait := b.limiter.TimeUntilNext(userID)
		b.reply(i, fmt.Sprintf("⏳ Slow down, try again in %d seconds.", int(wait.Seconds())+1))
		return
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case "challenge":
		if len(data.Options) == 0 {
			return
		}
		sub := data.Options[0]
		opts := optionMap(sub.Options)
		switch sub.Name {
		case "start":
			b.handleStart(i, userID, opts)
		case "join":
			b.handleJoin(i, userID, opts)
		case "status":
			b.handleStatus(i, opts)
		case "github":
			b.handleGithub(i, userID, opts)
		case "submit":
			b.handleSubmit(i, userID, opts)
		case "vote":
			b.handleVote(i, userID, opts)
		}
	case "reset-user":
		b.handleResetUser(i, userID, optionMap(data.Options))
	}
}

func (b *Bot) handleStart(i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	req := challenge.StartRequest{
		Theme:    stringOpt(opts, "theme"),
		TeamSize: intOpt(opts, "team_size"),
	}
	if v := intOpt(opts, "deadline_hours"); v > 0 {
		req.DeadlineHours = v
	}
	if v := stringOpt(opts, "difficulty"); v != "" {
		req.Difficulty = v
	}
	req.Customization = stringOpt(opts, "customization")

	res, err := b.config.Challenges.StartChallenge(context.Background(), userID, i.ChannelID, req)
	b.replyResult(i, res, err)
}

func (b *Bot) handleJoin(i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	res, err := b.config.Challenges.JoinChallenge(context.Background(), stringOpt(opts, "challenge_id"), userID)
	b.replyResult(i, res, err)
}

func (b *Bot) handleStatus(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	var hub *types.ChallengeHub
	var err error
	if id := stringOpt(opts, "challenge_id"); id != "" {
		hub, err = b.config.Hubs.Get(id)
	} else if hub, err = b.config.Hubs.GetByChallengeChannel(i.ChannelID); errors.Is(err, types.ErrNotFound) {
		hub, err = b.config.Hubs.CurrentRecruiting()
	}
	if errors.Is(err, types.ErrNotFound) {
		b.reply(i, "❌ No challenge found.")
		return
	}
	if err != nil {
		b.replyError(i, err)
		return
	}

	participants, err := b.config.Participants.ListByHub(hub.ID)
	if err != nil {
		b.replyError(i, err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Challenge %s\n", hub.ID[:8])
	fmt.Fprintf(&sb, "Theme: %s (%s)\n", hub.Theme, hub.Difficulty)
	fmt.Fprintf(&sb, "Status: %s\n", hub.Status)
	fmt.Fprintf(&sb, "Team: %d/%d\n", len(participants), hub.TeamSize)
	if hub.Deadline != nil {
		fmt.Fprintf(&sb, "Deadline: %s\n", hub.Deadline.Format("Mon 02 Jan 15:04"))
	}
	if eval, err := b.config.EvalRepo.GetByHub(hub.ID); err == nil {
		jurors, _ := b.config.Evaluators.ListByEvaluation(eval.ID)
		fmt.Fprintf(&sb, "Evaluation: %s, jury %d/%d, votes true=%d false=%d\n",
			eval.Status, len(jurors), types.JurySize, eval.TrueVotes, eval.FalseVotes)
		if eval.FinalResult != "" {
			fmt.Fprintf(&sb, "Result: %s\n", eval.FinalResult)
		}
	}
	b.reply(i, sb.String())
}

func (b *Bot) handleGithub(i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	eval, err := b.resolveEvaluation(i.ChannelID)
	if errors.Is(err, types.ErrNotFound) {
		b.reply(i, "❌ Use this command in your challenge or evaluation channel.")
		return
	}
	if err != nil {
		b.replyError(i, err)
		return
	}

	res, err := b.config.Evaluations.SubmitGithubLink(context.Background(), eval.ID, stringOpt(opts, "link"))
	b.replyResult(i, res, err)
}

func (b *Bot) handleSubmit(i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	hub, err := b.config.Hubs.GetByChallengeChannel(i.ChannelID)
	if errors.Is(err, types.ErrNotFound) {
		b.reply(i, "❌ Use this command in your challenge channel.")
		return
	}
	if err != nil {
		b.replyError(i, err)
		return
	}

	member := false
	ids, err := b.config.Participants.UserIDsByHub(hub.ID)
	if err != nil {
		b.replyError(i, err)
		return
	}
	for _, id := range ids {
		if id == userID {
			member = true
			break
		}
	}
	if !member {
		b.reply(i, "❌ Only team members can submit.")
		return
	}

	sub := &types.ChallengeSubmission{
		HubID:           hub.ID,
		ProjectName:     stringOpt(opts, "project_name"),
		SolutionSummary: stringOpt(opts, "summary"),
		Deliverables:    stringOpt(opts, "deliverables"),
	}
	if err := b.config.Submissions.Create(sub); err != nil {
		b.replyError(i, err)
		return
	}
	b.reply(i, fmt.Sprintf("✅ Submission recorded: %s", sub.ProjectName))
}

func (b *Bot) handleVote(i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	eval, err := b.resolveEvaluation(i.ChannelID)
	if errors.Is(err, types.ErrNotFound) {
		b.reply(i, "❌ Use this command in the evaluation channel.")
		return
	}
	if err != nil {
		b.replyError(i, err)
		return
	}

	res, err := b.config.Evaluations.SubmitVote(context.Background(), eval.ID, userID, stringOpt(opts, "value"))
	b.replyResult(i, res, err)
}

func (b *Bot) handleResetUser(i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	if userID != b.config.AdminUserID {
		b.reply(i, "❌ Only the admin can do this.")
		return
	}
	target := stringOpt(opts, "user")
	if target == "" {
		b.reply(i, "❌ Missing user.")
		return
	}
	res, err := b.config.Challenges.ResetUser(context.Background(), target)
	b.replyResult(i, res, err)
}

// resolveEvaluation maps the channel a command was typed in to its
// evaluation: directly for evaluation channels, through the hub for
// working channels.
func (b *Bot) resolveEvaluation(channelID string) (*types.ChallengeEvaluation, error) {
	if eval, err := b.config.EvalRepo.GetByChannel(channelID); err == nil {
		return eval, nil
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	hub, err := b.config.Hubs.GetByChallengeChannel(channelID)
	if err != nil {
		return nil, err
	}
	return b.config.EvalRepo.GetByHub(hub.ID)
}

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	customID := i.MessageComponentData().CustomID

	prefix, evalID, ok := strings.Cut(customID, ":")
	if !ok {
		return
	}

	switch prefix {
	case evaluation.ButtonJuryToggle:
		res, err := b.config.Evaluations.ToggleJuror(context.Background(), evalID, userID)
		if err == nil && (res.Action == "joined" || res.Action == "left") {
			b.updateJuryButton(i, evalID, res.Count)
		}
		b.replyResult(i, res, err)
	case evaluation.ButtonAdminApprove:
		res, err := b.config.Evaluations.AdminFinalize(context.Background(), evalID, userID, types.DecisionApproved)
		b.replyResult(i, res, err)
	case evaluation.ButtonAdminReject:
		res, err := b.config.Evaluations.AdminFinalize(context.Background(), evalID, userID, types.DecisionRejected)
		b.replyResult(i, res, err)
	}
}

// updateJuryButton rewrites the recruitment message so its label shows
// the live juror count.
func (b *Bot) updateJuryButton(i *discordgo.InteractionCreate, evalID string, count int) {
	label := fmt.Sprintf("🙋 Join jury (%d/%d)", count, types.JurySize)
	edit := discordgo.NewMessageEdit(i.ChannelID, i.Message.ID)
	content := i.Message.Content
	edit.Content = &content
	edit.Components = &[]discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    label,
				Style:    discordgo.PrimaryButton,
				CustomID: evaluation.ButtonJuryToggle + ":" + evalID,
				Disabled: count >= types.JurySize,
			},
		}},
	}
	if _, err := b.session.ChannelMessageEditComplex(edit); err != nil {
		log.Printf("bot: jury button update failed: %v", err)
	}
}

func (b *Bot) replyResult(i *discordgo.InteractionCreate, res types.Result, err error) {
	if err != nil {
		b.replyError(i, err)
		return
	}
	b.reply(i, res.Message)
}

func (b *Bot) replyError(i *discordgo.InteractionCreate, err error) {
	log.Printf("bot: interaction failed: %v", err)
	b.reply(i, "❌ Something went wrong. Please try again.")
}

func (b *Bot) reply(i *discordgo.InteractionCreate, text string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("bot: interaction response failed: %v", err)
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func stringOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok {
		switch o.Type {
		case discordgo.ApplicationCommandOptionUser:
			return o.Value.(string)
		default:
			return o.StringValue()
		}
	}
	return ""
}

func intOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	if o, ok := opts[name]; ok {
		return int(o.IntValue())
	}
	return 0
}
