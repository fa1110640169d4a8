package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/asuogyaman/constituency-gateway/internal/auth"
	"github.com/asuogyaman/constituency-gateway/internal/config"
	"github.com/asuogyaman/constituency-gateway/internal/dedup"
	gateway "github.com/asuogyaman/constituency-gateway/internal/gateways"
	"github.com/asuogyaman/constituency-gateway/internal/handlers"
	"github.com/asuogyaman/constituency-gateway/internal/repository"
	"github.com/asuogyaman/constituency-gateway/internal/services"
	xhttp "github.com/asuogyaman/constituency-gateway/pkg/http"
	"github.com/asuogyaman/constituency-gateway/pkg/logger"
	"github.com/asuogyaman/constituency-gateway/pkg/pg"
	"github.com/asuogyaman/constituency-gateway/pkg/prom"
	"github.com/asuogyaman/constituency-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 30))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CORSMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		// The webhook deduper degrades to DB-only idempotency without redis.
		logger.Error("failed connecting to redis, continuing without dedup", "error", err)
		redisAdap = nil
	}

	hostname, _ := os.Hostname()
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
	}
	if config.Get().AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(config.Get().AppDebugMetricsAddr, "/metrics")
	}

	// gateways
	paystackClient := gateway.NewPaystackClient(gateway.PaystackConfig{
		SecretKey: config.Get().PaystackSecretKey,
		BaseURL:   config.Get().PaystackBaseUrl,
	})
	smsClient := gateway.NewSMSOnlineClient(gateway.SMSOnlineConfig{
		APIKey:  config.Get().SMSOnlineApiKey,
		BaseURL: config.Get().SMSOnlineBaseUrl,
	})

	// Paystack signs webhooks with the secret key unless a dedicated
	// webhook secret is configured.
	webhookSecret := config.Get().PaystackWebhookSecret
	if webhookSecret == "" {
		webhookSecret = config.Get().PaystackSecretKey
	}

	var deduper *dedup.Deduper
	if redisAdap != nil {
		deduper = dedup.New(redisAdap, dedup.DefaultConfig())
	}

	contributionRepo := repository.NewContributionRepository(db)
	messageLogRepo := repository.NewMessageLogRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// services
	paymentService := services.NewPaymentService(paystackClient, contributionRepo, webhookSecret, deduper)
	smsService := services.NewSmsService(smsClient, profileRepo, messageLogRepo, config.Get().SMSSenderName)
	healthService := services.NewHealthService(db)

	tokenVerifier := auth.NewTokenVerifier(config.Get().JWTSecret)

	// v1 handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	smsHandler := handlers.NewSmsHandler(smsService, tokenVerifier)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterPaymentRoutes(g, paymentHandler)
	handlers.RegisterSmsRoutes(g, smsHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
