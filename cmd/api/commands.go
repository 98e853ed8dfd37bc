package main

import (
	"bufio"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"estatedesk/auth"
	"estatedesk/collaboration"
	"estatedesk/config"
	"estatedesk/db"
	"estatedesk/logging"
	"estatedesk/notify"
	"estatedesk/property"
	"estatedesk/revenue"
	"estatedesk/session"
	"estatedesk/web"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "estatedesk",
		Short:         "Brokerage back office: listings, supplier collaborations and revenue",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(
		serveCmd(),
		migrateCmd(),
		hashPasswordCmd(),
		createUserCmd(),
	)
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply pending migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := db.ApplyMigrations(cmd.Context(), pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations.")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			logging.Logger.WithField("count", len(applied)).Infof("%s schema up to date", cfg.AppName)
			return nil
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for a STAFF_USERS entry (password read from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a staff account in the database identity store (password read from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			role, _ := cmd.Flags().GetString("role")

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			_, pool, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := db.ApplyMigrations(cmd.Context(), pool); err != nil {
				return err
			}

			svc := auth.NewService(auth.NewRepository(pool))
			user, err := svc.Register(cmd.Context(), auth.RegisterRequest{
				Username: username,
				Password: password,
				Role:     auth.Role(role),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Username, user.Role)
			return nil
		},
	}
	cmd.Flags().String("username", "", "login name")
	cmd.Flags().String("role", string(auth.RoleAdmin), "admin or superadmin")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// bootstrap loads configuration, initialises logging and opens the pool.
func bootstrap(ctx context.Context) (config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logging.Init(cfg.AppName, cfg.LogLevel)

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN(), db.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("bootstrap database pool: %w", err)
	}
	return cfg, pool, nil
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, pool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := db.ApplyMigrations(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logging.Logger.WithField("versions", applied).Info("applied migrations")
	}

	verifier, err := buildVerifier(cfg, pool)
	if err != nil {
		return err
	}

	store, closeStore, err := buildSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	loc := cfg.Location()
	mailer := notify.NewSMTPMailer(notify.Config{
		Host:     cfg.Mail.Server,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.Sender,
		UseTLS:   cfg.Mail.UseTLS,
		UseSSL:   cfg.Mail.UseSSL,
	})
	if !mailer.IsConfigured() {
		logging.Logger.Warn("MAIL_SERVER or sender not set; sale notifications will fail and be reported inline")
	}
	dispatcher := notify.NewDispatcher(mailer, cfg.Mail.Recipients)

	server := &Server{
		verifier:       verifier,
		sessions:       session.NewManager(store, cfg.SecretKey, cfg.SessionTTL),
		properties:     property.NewService(pool, property.NewRepository(pool), dispatcher).WithClock(time.Now, loc),
		collaborations: collaboration.NewService(collaboration.NewRepository(pool)).WithClock(time.Now, loc),
		revenue:        revenue.NewService(revenue.NewSource(pool)),
		renderer:       renderer,
		health: func(ctx context.Context) error {
			if err := db.WithConn(ctx, pool, func(conn db.DBTX) error {
				var one int
				return conn.QueryRow(ctx, `SELECT 1`).Scan(&one)
			}); err != nil {
				return err
			}
			if p, ok := store.(interface{ Ping(context.Context) error }); ok {
				return p.Ping(ctx)
			}
			return nil
		},
		csrfKey:      csrfKey(cfg.SecretKey),
		cookieSecure: cfg.CookieSecure,
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.WithField("addr", cfg.Addr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func buildVerifier(cfg config.Config, pool *pgxpool.Pool) (auth.Verifier, error) {
	if cfg.AuthBackend == "database" {
		logging.Logger.Info("authenticating against staff_users table")
		return auth.NewService(auth.NewRepository(pool)), nil
	}

	users, err := auth.ParseStaticUsers(cfg.StaffUsers)
	if err != nil {
		return nil, err
	}
	v := auth.NewStaticVerifier(users)
	if v.Len() == 0 {
		logging.Logger.Warn("STAFF_USERS is empty; nobody can log in")
	}
	return v, nil
}

func buildSessionStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	if cfg.RedisURL == "" {
		logging.Logger.Info("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}
	store, err := session.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// csrfKey derives the 32-byte token key from SECRET_KEY so one secret covers
// both session signing and form tokens.
func csrfKey(secret string) []byte {
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return sum[:]
}
