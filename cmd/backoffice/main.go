package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	agencyapp "github.com/drivemaster/backoffice/internal/application/agency"
	contractapp "github.com/drivemaster/backoffice/internal/application/contract"
	dashboardapp "github.com/drivemaster/backoffice/internal/application/dashboard"
	"github.com/drivemaster/backoffice/internal/infrastructure/api"
	"github.com/drivemaster/backoffice/internal/infrastructure/cache"
	"github.com/drivemaster/backoffice/internal/infrastructure/config"
	"github.com/drivemaster/backoffice/internal/infrastructure/logger"
	"github.com/drivemaster/backoffice/internal/infrastructure/session"
)

const usage = `Usage: backoffice <command> [flags]

Commands:
  login            -email <email> -password <password>
  logout
  whoami
  stats
  cache            show response cache statistics
  delete-contract  -id <id>   remove a contract with its blocks and ledger entries
  delete-sale      -id <id>   remove an agency sale with its ledger entries
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	app, err := buildApp(cfg, log)
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}

	ctx := context.Background()
	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app wires the configured services behind the CLI commands.
type app struct {
	session   *session.Manager
	client    *api.Client
	contracts *contractapp.Service
	agencies  *agencyapp.Service
	dashboard *dashboardapp.Service
	logger    *zap.Logger
}

func buildApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	store, err := session.NewSQLiteCredentialStore(cfg.Session.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	responseCache, err := cache.NewFactory(
		cache.Backend(cfg.Cache.Backend),
		cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		cache.WithFactoryLogger(log),
		cache.WithFactoryTTL(cfg.Cache.TTL),
	).Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	mgr := session.NewManager(cfg.API.BaseURL, store,
		session.WithHTTPClient(httpClient),
		session.WithLogger(log),
		session.WithSessionExpiredHook(func() {
			fmt.Fprintln(os.Stderr, "Session expired, please log in again.")
		}),
	)

	client, err := api.New(api.Config{
		BaseURL:    cfg.API.BaseURL,
		Session:    mgr,
		Cache:      responseCache,
		HTTPClient: httpClient,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		session:   mgr,
		client:    client,
		contracts: contractapp.NewService(client, contractapp.WithLogger(log)),
		agencies:  agencyapp.NewService(client, agencyapp.WithLogger(log)),
		dashboard: dashboardapp.NewService(client, dashboardapp.WithLogger(log)),
		logger:    log,
	}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		a.session.Logout(ctx)
		fmt.Println("Logged out.")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "stats":
		return a.stats(ctx)
	case "cache":
		return a.cacheStats(ctx)
	case "delete-contract":
		return a.deleteContract(ctx, args)
	case "delete-sale":
		return a.deleteSale(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("both -email and -password are required")
	}

	resp, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s.\n", *email)
	if len(resp.User) > 0 {
		fmt.Println(string(resp.User))
	}
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if !a.session.IsAuthenticated(ctx) {
		return fmt.Errorf("not logged in")
	}
	user := a.session.CurrentUser(ctx)
	if len(user) == 0 {
		fmt.Println("Logged in (no profile stored).")
		return nil
	}
	var pretty map[string]any
	if err := json.Unmarshal(user, &pretty); err != nil {
		fmt.Println(string(user))
		return nil
	}
	encoded, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(encoded))
	return nil
}

func (a *app) stats(ctx context.Context) error {
	summary, err := a.dashboard.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Clients:       %d\n", summary.Clients)
	fmt.Printf("Instructors:   %d\n", summary.Instructors)
	fmt.Printf("Contracts:     %d\n", summary.Contracts)
	fmt.Printf("Agency sales:  %d\n", summary.AgencySales)
	fmt.Printf("Month income:  %s\n", summary.MonthIncome.StringFixed(2))
	return nil
}

func (a *app) deleteContract(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-contract", flag.ExitOnError)
	id := fs.Int64("id", 0, "contract id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("-id is required")
	}
	if err := a.contracts.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("Contract %d deleted.\n", *id)
	return nil
}

func (a *app) deleteSale(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-sale", flag.ExitOnError)
	id := fs.Int64("id", 0, "agency sale id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("-id is required")
	}

	// The sale's loaded ledger entries drive the delete, so fetch the sale
	// with its relation first.
	sales, err := a.client.ListAgencySales(ctx, api.ListQuery{Limit: 10000})
	if err != nil {
		return err
	}
	for _, sale := range sales {
		if sale.ID == *id {
			if err := a.agencies.Delete(ctx, *id, sale); err != nil {
				return err
			}
			fmt.Printf("Agency sale %d deleted.\n", *id)
			return nil
		}
	}
	return fmt.Errorf("agency sale %d not found", *id)
}

func (a *app) cacheStats(ctx context.Context) error {
	stats := a.client.CacheStats(ctx)
	fmt.Printf("Entries: %d  Hits: %d  Misses: %d  Bytes: %d\n",
		stats.Size, stats.Hits, stats.Misses, stats.MemoryUsage)
	for _, key := range stats.Keys {
		fmt.Println("  " + key)
	}
	return nil
}
