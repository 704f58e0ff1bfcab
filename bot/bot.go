package bot

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"starboard-bot/config"
	"starboard-bot/core"
	"starboard-bot/database"
	"starboard-bot/utils"
)

// Command defines the interface for a bot command.
type Command interface {
	Definition() *discordgo.ApplicationCommand
	Handler(b *Bot, s *discordgo.Session, i *discordgo.InteractionCreate)
}

// Bot encapsulates the bot's state.
type Bot struct {
	Session  *discordgo.Session
	Ctx      *core.Context
	Log      *zap.Logger
	Notifier *utils.Notifier
	Commands map[string]Command
}

// NewBot creates and initializes a new Bot instance.
func NewBot() (*Bot, error) {
	config.LoadConfig()
	cfg, err := config.Typed()
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("error creating logger: %w", err)
	}

	token := viper.GetString("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildEmojis |
		discordgo.IntentMessageContent

	db, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	ctx := core.NewContext(db, dg, core.NewCache(), logger)

	return &Bot{
		Session:  dg,
		Ctx:      ctx,
		Log:      logger,
		Notifier: utils.NewNotifier(dg, logger),
		Commands: make(map[string]Command),
	}, nil
}

// RegisterCommands registers the provided commands.
func (b *Bot) RegisterCommands(commands []Command) {
	for _, cmd := range commands {
		b.Commands[cmd.Definition().Name] = cmd
	}
}

// Start opens the bot's session and registers handlers.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	for _, cmd := range b.Commands {
		_, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", cmd.Definition())
		if err != nil {
			b.Log.Warn("cannot create command",
				zap.String("command", cmd.Definition().Name), zap.Error(err))
		}
	}

	startScheduler(b)

	b.Log.Info("bot is now running")
	return nil
}

// Stop gracefully closes the bot: scheduler first, then the gateway, then a
// bounded drain of in-flight refreshes, then the store.
func (b *Bot) Stop() {
	stopScheduler(b)
	if b.Session != nil {
		b.Session.Close()
	}
	if !b.Ctx.Drain(30 * time.Second) {
		b.Log.Warn("shutdown drain timed out, some refreshes were abandoned")
	}
	if err := b.Ctx.DB.Close(); err != nil {
		b.Log.Warn("closing database failed", zap.Error(err))
	}
	b.Log.Info("bot stopped gracefully")
	b.Log.Sync()
}

// Run is the main entry point for the bot application.
func Run(registerHandlers func(*Bot), commands []Command) {
	bot, err := NewBot()
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}

	bot.RegisterCommands(commands)

	if err := bot.Start(registerHandlers); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()
}
