package main

import (
	"encoding/json"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"
	"github.com/username/tradevault/src/brokersync"
	"github.com/username/tradevault/src/config"
	"github.com/username/tradevault/src/database"
	"github.com/username/tradevault/src/handlers"
	"github.com/username/tradevault/src/logger"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/processors"
	"github.com/username/tradevault/src/services"
	"github.com/username/tradevault/src/storage"
	"github.com/username/tradevault/src/utils"
	"golang.org/x/oauth2"
	"google.golang.org/genai"
)

func main() {
	root := &cobra.Command{
		Use:   "tradevault",
		Short: "Trade journal ingestion and reconciliation service",
	}
	root.AddCommand(serveCmd(), genTokenCmd(), brokerSyncCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ingestion service",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadConfig()
			logger.Init(config.Cfg.LogLevel)
			logger.L.Info("TradeVault server starting...")

			database.InitDB(config.Cfg.DatabasePath)

			ledger := storage.NewSQLiteLedgerStore(database.DB)
			metricsStore := storage.NewSQLiteMetricsStore(database.DB)
			mappings := storage.NewSQLiteMappingStore(database.DB)
			tokens := storage.NewSQLiteTokenStore(database.DB)
			accounts := storage.NewSQLiteAccountStore(database.DB)
			journal := storage.NewSQLiteJournalStore(database.DB)

			reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
			metricsEngine := processors.NewMetricsEngine(ledger, metricsStore)
			importService := services.NewImportService(ledger, metricsEngine, reportCache)
			webhookService := services.NewWebhookService(tokens, accounts, ledger, metricsEngine, journal, config.Cfg.WebhookSecret)
			emailService := services.NewInboundEmailService(tokens, accounts, importService, journal,
				services.NewNotifier(), config.Cfg.AttachmentDir)

			var coachService *services.CoachService
			if config.Cfg.CoachModel != "" {
				client, err := genai.NewClient(cmd.Context(), nil)
				if err != nil {
					logger.L.Error("Failed to initialize Gemini client, coaching disabled", "error", err)
				} else {
					coachService = services.NewCoachService(
						services.NewGeminiGenerator(client, config.Cfg.CoachModel), metricsStore)
					logger.L.Info("Coaching enabled", "model", config.Cfg.CoachModel)
				}
			}

			importHandler := handlers.NewImportHandler(importService, accounts, mappings)
			webhookHandler := handlers.NewWebhookHandler(webhookService)
			emailHandler := handlers.NewEmailHandler(emailService)
			metricsHandler := handlers.NewMetricsHandler(metricsStore, accounts, coachService)
			mappingHandler := handlers.NewMappingHandler(mappings)
			tokenHandler := handlers.NewTokenHandler(tokens)

			logger.L.Info("Configuring routes...")
			mux := http.NewServeMux()

			withToken := func(h http.HandlerFunc) http.Handler {
				return handlers.TokenAuthMiddleware(tokens, h)
			}

			mux.Handle("POST /api/import", withToken(importHandler.HandleImport))
			mux.Handle("GET /api/metrics/daily", withToken(metricsHandler.HandleGetDailyMetrics))
			mux.Handle("GET /api/coach/daily", withToken(metricsHandler.HandleGetDailyCoaching))
			mux.Handle("POST /api/mappings", withToken(mappingHandler.HandleSaveMapping))
			mux.Handle("GET /api/mappings", withToken(mappingHandler.HandleListMappings))
			mux.Handle("POST /api/token/rotate", withToken(tokenHandler.HandleRotateToken))

			// Channel endpoints authenticate inside the service layer (shared
			// secret / routing token), not via the token header.
			mux.HandleFunc("POST /api/webhook/tradingview", webhookHandler.HandleTradingViewAlert)
			mux.HandleFunc("POST /api/inbound/email", emailHandler.HandleInboundEmail)

			mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/" {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"message": "TradeVault backend is running"})
			})

			server := &http.Server{
				Addr:         ":" + config.Cfg.Port,
				Handler:      handlers.RateLimitMiddleware(mux),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			logger.L.Info("Server starting", "address", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.L.Error("Failed to start server", "error", err)
				stdlog.Fatalf("Failed to start server: %v", err)
			}
			logger.L.Info("Server stopped gracefully.")
			return nil
		},
	}
}

func genTokenCmd() *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "gen-token",
		Short: "Issue a fresh ingestion token for a user (invalidates the prior one)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user is required")
			}
			config.LoadConfig()
			logger.Init(config.Cfg.LogLevel)
			database.InitDB(config.Cfg.DatabasePath)

			tokens := storage.NewSQLiteTokenStore(database.DB)
			token, err := tokens.Rotate(userID)
			if err != nil {
				return fmt.Errorf("rotating token: %w", err)
			}
			fmt.Printf("ingestion token for user %d: %s\n", userID, token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id to issue the token for")
	return cmd
}

func brokerSyncCmd() *cobra.Command {
	var (
		userID      int64
		accountTag  string
		brokerRef   string
		accessToken string
		sinceStr    string
	)
	cmd := &cobra.Command{
		Use:   "broker-sync",
		Short: "Pull executed fills from the broker API into the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 || brokerRef == "" || accessToken == "" {
				return fmt.Errorf("--user, --broker-account and --access-token are required")
			}
			since := time.Now().AddDate(0, 0, -7)
			if sinceStr != "" {
				parsed, err := utils.ParseDay(sinceStr)
				if err != nil {
					return fmt.Errorf("--since must be YYYY-MM-DD: %w", err)
				}
				since = parsed
			}

			config.LoadConfig()
			logger.Init(config.Cfg.LogLevel)
			if config.Cfg.BrokerSyncBaseURL == "" {
				return fmt.Errorf("BROKER_SYNC_BASE_URL is not configured")
			}
			database.InitDB(config.Cfg.DatabasePath)

			ledger := storage.NewSQLiteLedgerStore(database.DB)
			metricsStore := storage.NewSQLiteMetricsStore(database.DB)
			accounts := storage.NewSQLiteAccountStore(database.DB)
			importService := services.NewImportService(ledger,
				processors.NewMetricsEngine(ledger, metricsStore), nil)

			var account *models.Account
			var err error
			if accountTag == "" {
				account, err = accounts.EnsureDefault(userID)
			} else {
				account, err = accounts.FindByTag(userID, accountTag)
			}
			if err != nil {
				return fmt.Errorf("resolving account: %w", err)
			}
			if account == nil {
				return fmt.Errorf("unknown account %q", accountTag)
			}

			client := brokersync.NewClient(config.Cfg.BrokerSyncBaseURL)
			token := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
			candidates, err := client.FetchExecutions(cmd.Context(), token, brokerRef, since)
			if err != nil {
				return fmt.Errorf("fetching executions: %w", err)
			}

			result, err := importService.ImportCandidates(userID, account.ID, candidates, models.SourceBrokerSync)
			if err != nil {
				return fmt.Errorf("importing executions: %w", err)
			}
			fmt.Printf("synced %d fills: %d inserted, %d updated across %d day(s)\n",
				len(candidates), result.Inserted, result.Updated, len(result.DatesTouched))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id to sync for")
	cmd.Flags().StringVar(&accountTag, "account", "", "account tag (defaults to the user's default account)")
	cmd.Flags().StringVar(&brokerRef, "broker-account", "", "broker-side account reference")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "broker API access token")
	cmd.Flags().StringVar(&sinceStr, "since", "", "earliest fill date, YYYY-MM-DD (default 7 days back)")
	return cmd
}
