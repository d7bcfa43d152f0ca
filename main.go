// Command contest-notifier aggregates upcoming competitive programming
// contests and reminds subscribers by email and SMS before they start.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"contest-notifier/config"
	"contest-notifier/email"
	"contest-notifier/remind"
	"contest-notifier/server"
	"contest-notifier/sms"
	"contest-notifier/source"
	"contest-notifier/store"
)

var configPath string

func main() {
	// Missing .env is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := &cobra.Command{
		Use:           "contest-notifier",
		Short:         "Contest reminder notification service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONTEST_NOTIFIER_CONFIG"),
		"path to YAML config file (optional)")

	root.AddCommand(
		serveCmd(logger),
		tickCmd(logger),
		contestsCmd(logger),
	)

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// app holds the wired-up service components shared by every command.
type app struct {
	cfg    *config.Config
	store  *store.Store
	engine *remind.Engine
	email  *email.Sender
	sms    *sms.Sender
	logger *slog.Logger
}

func buildApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	var sources []source.Source
	if cfg.Sources.Codeforces.Enabled {
		sources = append(sources, source.NewCodeforces(client, cfg.Sources.Codeforces.BaseURL, logger))
	}
	if cfg.Sources.AtCoder.Enabled {
		sources = append(sources, source.NewAtCoder(client, cfg.Sources.AtCoder.BaseURL, logger))
	}
	if cfg.Sources.LeetCode.Enabled {
		sources = append(sources, source.NewLeetCode(client, cfg.Sources.LeetCode.BaseURL, logger))
	}
	if cfg.Sources.CodeChef.Enabled {
		sources = append(sources, source.NewCodeChef(client, cfg.Sources.CodeChef.BaseURL, logger))
	}
	fetcher := source.NewFetcher(sources, logger)

	emailProvider, err := buildEmailProvider(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	emailSender := email.New(emailProvider, logger, cfg.Server.BaseURL)

	smsSender := sms.New(buildSMSProvider(cfg, logger), logger)

	engine := remind.New(&remind.Config{
		Fetcher:     fetcher,
		Contests:    st,
		Subscribers: st,
		Ledger:      st,
		Email:       emailSender,
		SMS:         smsSender,
		Logger:      logger,
	})

	return &app{
		cfg:    cfg,
		store:  st,
		engine: engine,
		email:  emailSender,
		sms:    smsSender,
		logger: logger,
	}, nil
}

func buildEmailProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (email.Provider, error) {
	switch cfg.Email.Provider {
	case "gmail":
		if cfg.Email.GoogleCredsJSON == "" {
			return nil, errors.New("email.provider is gmail but no google credentials configured")
		}
		svc, err := gmail.NewService(ctx, option.WithCredentialsJSON([]byte(cfg.Email.GoogleCredsJSON)))
		if err != nil {
			return nil, fmt.Errorf("create gmail service: %w", err)
		}
		return email.NewGmailProvider(svc, logger), nil
	case "brevo":
		if cfg.Email.BrevoAPIKey == "" {
			return nil, errors.New("email.provider is brevo but brevo_api_key is empty")
		}
		return email.NewBrevoProvider(cfg.Email.BrevoAPIKey, cfg.Email.FromAddr, cfg.Email.FromName, "", logger), nil
	case "mock":
		return email.NewMockProvider(logger), nil
	case "":
		// No explicit choice: prefer whichever credentials are present.
		if cfg.Email.GoogleCredsJSON != "" {
			svc, err := gmail.NewService(ctx, option.WithCredentialsJSON([]byte(cfg.Email.GoogleCredsJSON)))
			if err != nil {
				return nil, fmt.Errorf("create gmail service: %w", err)
			}
			return email.NewGmailProvider(svc, logger), nil
		}
		if cfg.Email.BrevoAPIKey != "" {
			return email.NewBrevoProvider(cfg.Email.BrevoAPIKey, cfg.Email.FromAddr, cfg.Email.FromName, "", logger), nil
		}
		logger.Warn("No email credentials configured, using mock provider")
		return email.NewMockProvider(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}

func buildSMSProvider(cfg *config.Config, logger *slog.Logger) sms.Provider {
	if cfg.SMS.Provider == "twilio" ||
		(cfg.SMS.Provider == "" && cfg.SMS.AccountSID != "" && cfg.SMS.AuthToken != "") {
		return sms.NewTwilioProvider(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber, "", logger)
	}
	if cfg.SMS.Provider != "" && cfg.SMS.Provider != "mock" {
		logger.Warn("Unknown SMS provider, using mock", "provider", cfg.SMS.Provider)
	}
	return sms.NewMockProvider(logger)
}

func serveCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.store.Close()

			if a.cfg.Trigger.Token == "" {
				logger.Warn("No trigger token configured, POST /tick is disabled")
			}

			// Self-scheduled ticks are optional; most deployments use an
			// external scheduler against POST /tick instead.
			if a.cfg.Trigger.Schedule != "" {
				c := cron.New()
				_, err := c.AddFunc(a.cfg.Trigger.Schedule, func() {
					tickCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
					defer cancel()
					if err := a.engine.Tick(tickCtx); err != nil {
						logger.Error("Scheduled tick failed", "error", err)
					}
				})
				if err != nil {
					return fmt.Errorf("invalid trigger schedule %q: %w", a.cfg.Trigger.Schedule, err)
				}
				c.Start()
				defer c.Stop()
				logger.Info("Scheduled ticks enabled", "schedule", a.cfg.Trigger.Schedule)
			}

			srv := server.New(&server.Config{
				Ticker:       a.engine,
				Store:        a.store,
				Emailer:      a.email,
				Texter:       a.sms,
				Logger:       logger,
				IsNotFound:   func(err error) bool { return errors.Is(err, store.ErrNotFound) },
				TriggerToken: a.cfg.Trigger.Token,
			})

			err = srv.ListenAndServe(ctx, strconv.Itoa(a.cfg.Server.Port))
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
}

func tickCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run a single reminder pass and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.store.Close()

			return a.engine.Tick(ctx)
		},
	}
}

func contestsCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "contests",
		Short: "Print the cached upcoming contests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer a.store.Close()

			contests, err := a.store.ListContests(cmd.Context())
			if err != nil {
				return err
			}
			if len(contests) == 0 {
				fmt.Println("No upcoming contests cached. Run a tick first.")
				return nil
			}
			for i := range contests {
				c := &contests[i]
				fmt.Printf("%s  %-12s %s\n    %s\n",
					c.StartsAt.UTC().Format("2006-01-02 15:04"),
					c.Platform.Label(),
					c.Name,
					c.URL)
			}
			return nil
		},
	}
}
