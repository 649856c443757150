package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"pkg.mon.icu/forum/internal/api"
	"pkg.mon.icu/forum/internal/comment"
	"pkg.mon.icu/forum/internal/config"
	"pkg.mon.icu/forum/internal/discord"
	"pkg.mon.icu/forum/internal/events"
	"pkg.mon.icu/forum/internal/metrics"
	"pkg.mon.icu/forum/internal/post"
	"pkg.mon.icu/forum/internal/rating"
	"pkg.mon.icu/forum/internal/reaction"
	"pkg.mon.icu/forum/internal/storage"
	"pkg.mon.icu/forum/internal/storage/entity"
	"pkg.mon.icu/forum/internal/storage/memory"
)

// store is everything the services need from persistence.
type store interface {
	reaction.Store
	rating.Store
	post.Store
	comment.Store
	CreateUser(ctx context.Context, username string, role entity.Role) (*entity.User, error)
}

type app struct {
	ctx    context.Context
	cancel context.CancelFunc

	logConf zap.Config
	logger  *zap.SugaredLogger

	config *config.Config

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	storage *storage.Storage
	store   store

	bus     *events.Bus
	ratings *rating.Aggregator
	discord *discord.Discord
	api     *api.API
}

func newApp(ctx context.Context, lcf zap.Config, log *zap.SugaredLogger, cfg *config.Config) (*app, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &app{ctx: ctx, cancel: cancel, logConf: lcf, logger: log, config: cfg}
	var err error

	log.Debug("Switching log level from configuration.")
	lcf.Level.SetLevel(a.config.Logging.Level)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	switch a.config.Storage.Driver {
	case config.DriverMemory:
		log.Warn("Using in-memory storage, nothing will survive a restart.")
		mem := memory.New()
		if err := seedMemoryUsers(ctx, log, mem, a.config.Storage.MemoryUsers); err != nil {
			cancel()
			return nil, err
		}
		a.store = mem
	default:
		log.Debug("Initializing Storage struct.")
		a.storage = storage.NewStorage(ctx, log)
		a.store = a.storage
	}

	a.bus = events.NewBus(log, a.metrics)
	a.ratings = rating.NewAggregator(log, a.metrics, a.store)

	var notifier comment.Notifier
	if a.config.Discord.Auth != "" {
		log.Debug("Initializing Discord struct.")
		a.discord, err = discord.NewDiscord(ctx, log, a.config.Discord.Auth, discord.NewConfig(a.config.Discord.Channel))
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize Discord struct: %w", err)
		}
		notifier = a.discord
	}

	comments := comment.NewService(log, a.store, a.ratings, a.bus)
	comments.Hold(a.config.Comments.HoldRegexp, notifier)

	log.Debug("Initializing API struct.")
	a.api = api.NewAPI(
		ctx,
		log,
		api.NewConfig(a.config.Api.Port, a.config.Api.JwtSecret, a.config.Events.Buffer),
		post.NewService(log, a.store, a.ratings, a.bus),
		comments,
		reaction.NewService(log, a.metrics, a.store, a.ratings, a.bus),
		a.bus,
		a.registry,
	)

	return a, nil
}

func seedMemoryUsers(ctx context.Context, log *zap.SugaredLogger, mem *memory.Store, users []config.MemoryUser) error {
	for _, u := range users {
		role := u.Role
		if role == "" {
			role = entity.RoleUser
		}
		created, err := mem.CreateUser(ctx, u.Username, role)
		if err != nil {
			return fmt.Errorf("couldn't seed user %s: %w", u.Username, err)
		}
		log.Infof("Seeded %s %s with ID %d.", created.Role, created.Username, created.ID)
	}
	if len(users) == 0 {
		log.Warn("No storage.memoryusers configured, authenticated requests will find no users.")
	}
	return nil
}

func (a *app) connectStorage() error {
	if a.storage == nil {
		return nil
	}

	a.logger.Debug("Connecting to PostgreSQL storage.")
	if err := a.storage.Connect(a.config.Storage.PostgresDSN); err != nil {
		return fmt.Errorf("couldn't connect to storage: %w", err)
	}
	if err := a.storage.Migrate(); err != nil {
		return err
	}
	a.logger.Debug("Successfully connected to PostgreSQL storage.")
	return nil
}

func (a *app) Run() (err error) {
	if err := a.connectStorage(); err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	if a.discord != nil {
		a.logger.Debug("Connecting to Discord API gateway.")
		if err := a.discord.Connect(); err != nil {
			return fmt.Errorf("couldn't connect to Discord: %w", err)
		}
		a.logger.Debug("Successfully connected to Discord API gateway.")
	}

	go func() {
		if err := a.ratings.Run(a.ctx, a.config.Rating.ReconcileInterval); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Errorf("Rating reconciliation stopped: %s.", err)
		}
	}()

	a.api.Listen()
	a.logger.Infof("Launch complete, listening on port %d. Send SIGINT to gracefully terminate.", a.config.Api.Port)
	<-a.ctx.Done()
	a.logger.Info("SIGINT received, terminating.")

	return a.ctx.Err()
}

// close releases everything Run acquired, in reverse order, and reports every failure.
func (a *app) close() error {
	var result *multierror.Error

	a.logger.Debug("Closing API server.")
	if err := a.api.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("couldn't close API server: %w", err))
	}

	a.logger.Debug("Closing event bus.")
	if err := a.bus.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("couldn't close event bus: %w", err))
	}

	if a.discord != nil {
		a.logger.Debug("Closing connection with Discord API gateway.")
		if err := a.discord.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("couldn't close Discord: %w", err))
		}
	}

	if a.storage != nil {
		a.logger.Debug("Closing PostgreSQL storage.")
		if err := a.storage.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("couldn't close storage: %w", err))
		}
	}

	return result.ErrorOrNil()
}

// AddUser creates a user account and prints its ID, which becomes the subject of the user's
// access tokens.
func (a *app) AddUser(username string, role entity.Role) error {
	if a.storage == nil {
		return errors.New("users can only be added to the postgres storage")
	}
	if err := a.connectStorage(); err != nil {
		return err
	}
	defer a.storage.Close()

	u, err := a.store.CreateUser(a.ctx, username, role)
	if err != nil {
		return err
	}
	fmt.Println(u.ID)
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	lcf := zap.NewDevelopmentConfig() // to later switch level without reallocation
	lcf.Level.SetLevel(zapcore.DebugLevel)
	lcf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	lcf.DisableCaller = true
	l, _ := lcf.Build()
	log := l.Sugar()
	defer func() { _ = l.Sync() }()

	log.Debug("Loading configuration.")
	cfg, err := config.Read()
	if err != nil {
		log.Fatalf("Couldn't load configuration: %s.", err)
	}

	log.Info("Initializing application.")
	a, err := newApp(ctx, lcf, log, cfg)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Fatalf("Couldn't initialize application: %s.", err)
		}

		return
	}

	if len(os.Args) > 1 && os.Args[1] == "adduser" {
		if len(os.Args) < 3 {
			log.Fatal("Usage: forum adduser <username> [user|admin].")
		}
		role := entity.RoleUser
		if len(os.Args) > 3 {
			role = entity.Role(os.Args[3])
		}
		if role != entity.RoleUser && role != entity.RoleAdmin {
			log.Fatalf("Unknown role %q.", role)
		}
		if err := a.AddUser(os.Args[2], role); err != nil {
			log.Fatalf("Couldn't add user: %s.", err)
		}
		return
	}

	log.Debug("Initialization tasks complete, continuing with launch.")
	if err := a.Run(); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Fatalf("Application crashed: %s.", err)
		}
	}
}
