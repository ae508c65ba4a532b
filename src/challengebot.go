package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/commforge/challengebot/src/bot"
	"github.com/commforge/challengebot/src/components/challenge"
	"github.com/commforge/challengebot/src/components/evaluation"
	"github.com/commforge/challengebot/src/config"
	"github.com/commforge/challengebot/src/data"
	"github.com/commforge/challengebot/src/gateway"
	"github.com/commforge/challengebot/src/repo"
	"github.com/commforge/challengebot/src/scheduler"
	"github.com/commforge/challengebot/src/webserver"
)

func main() {
	db, err := data.ConnectMySQL(data.GetMySQLDSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	cfg := config.Load(db)
	if cfg.Token == "" {
		log.Fatal("discord token not configured")
	}
	rdb := data.MustRedis(cfg.RedisURL)
	events := data.NewEvents(rdb)

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatalf("discord: %v", err)
	}
	me, err := session.User("@me")
	if err != nil {
		log.Fatalf("discord identity: %v", err)
	}
	gw := gateway.NewDiscord(session, cfg.GuildID, me.ID)

	hubs := repo.NewHubs(db)
	participants := repo.NewParticipants(db)
	evaluations := repo.NewEvaluations(db)
	evaluators := repo.NewEvaluators(db)
	submissions := repo.NewSubmissions(db)
	themes := repo.NewThemes(db)

	sched := scheduler.New()
	sched.Start()

	evalService := evaluation.NewService(evaluation.Config{
		Evaluations:  evaluations,
		Evaluators:   evaluators,
		Hubs:         hubs,
		Participants: participants,
		Messenger:    gw,
		Directory:    gw,
		Scheduler:    sched,
		Verifier:     evaluation.NewGithubVerifier(),
		Events:       events,
		AdminUserID:  cfg.AdminUserID,
	})

	challengeService := challenge.NewService(challenge.Config{
		Hubs:         hubs,
		Participants: participants,
		Themes:       themes,
		Messenger:    gw,
		Directory:    gw,
		Scheduler:    sched,
		Evaluations:  evalService,
		Events:       events,
		AdminUserID:  cfg.AdminUserID,
		HubChannelID: cfg.HubChannelID,
	})

	monitor := challenge.NewMonitor(challenge.MonitorConfig{
		Hubs:         hubs,
		Participants: participants,
		Evaluations:  evaluations,
		Evaluators:   evaluators,
		Directory:    gw,
		AdminUserID:  cfg.AdminUserID,
		BotUserID:    me.ID,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Timers do not survive a restart; re-register them from the database.
	challengeService.RearmDeadlines(ctx)
	evalService.RearmDeadlines(ctx)

	// Backstop behind the one-off finalize timers.
	if err := sched.Recurring("finalize_overdue", "@hourly", func() {
		evalService.FinalizeOverdue(context.Background())
	}); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	b := bot.New(session, bot.Config{
		GuildID:        cfg.GuildID,
		AdminUserID:    cfg.AdminUserID,
		HubChannelID:   cfg.HubChannelID,
		StartupChannel: cfg.StartupChannel,
		Challenges:     challengeService,
		Evaluations:    evalService,
		Monitor:        monitor,
		Hubs:           hubs,
		Participants:   participants,
		EvalRepo:       evaluations,
		Evaluators:     evaluators,
		Submissions:    submissions,
		Themes:         themes,
		Messenger:      gw,
	})
	if err := b.Start(); err != nil {
		log.Fatalf("bot: %v", err)
	}

	router := webserver.New(webserver.Deps{
		Hubs:         hubs,
		Participants: participants,
		Evaluations:  evaluations,
		Evaluators:   evaluators,
		Submissions:  submissions,
		Challenges:   challengeService,
		EvalService:  evalService,
		AdminUserID:  cfg.AdminUserID,
		APIToken:     cfg.AdminAPIToken,
	})
	httpSrv := &http.Server{
		Addr:         cfg.AdminAPIAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Printf("Admin API listening on %s", cfg.AdminAPIAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
	b.Stop()
	sched.Stop()
}
