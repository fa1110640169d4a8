package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Simulator fakes the two upstream gateways (Paystack and SMSOnlineGH) for
// local development: checkout sessions, batch sends and signed webhook
// deliveries, with a configurable failure rate and latency.
type Simulator struct {
	failRate  float64
	minDelay  time.Duration
	maxDelay  time.Duration
	secretKey string
	rng       *rand.Rand
}

func NewSimulator(failRate float64, minDelay, maxDelay time.Duration, secretKey string) *Simulator {
	return &Simulator{
		failRate:  failRate,
		minDelay:  minDelay,
		maxDelay:  maxDelay,
		secretKey: secretKey,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) simulateLatency() {
	if s.maxDelay <= s.minDelay {
		time.Sleep(s.minDelay)
		return
	}
	delta := time.Duration(s.rng.Int63n(int64(s.maxDelay - s.minDelay)))
	time.Sleep(s.minDelay + delta)
}

func (s *Simulator) shouldFail() bool {
	return s.rng.Float64() < s.failRate
}

func (s *Simulator) sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(s.secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type Handler struct {
	sim *Simulator
}

func NewHandler(sim *Simulator) *Handler {
	return &Handler{sim: sim}
}

/* ------------------------------- Paystack ----------------------------------- */

type initializeRequest struct {
	Email       string `json:"email" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	Reference   string `json:"reference" binding:"required"`
	CallbackURL string `json:"callback_url"`
}

func (h *Handler) InitializeTransaction(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if auth != "Bearer "+h.sim.secretKey {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status":  false,
			"message": "Invalid key",
			"code":    "invalid_key",
			"type":    "validation_error",
		})
		return
	}

	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  false,
			"message": err.Error(),
			"code":    "validation_error",
			"type":    "validation_error",
		})
		return
	}

	h.sim.simulateLatency()

	if h.sim.shouldFail() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  false,
			"message": "Service temporarily unavailable",
			"code":    "unavailable",
			"type":    "api_error",
		})
		return
	}

	accessCode := uuid.New().String()[:12]
	log.Info().
		Str("reference", req.Reference).
		Int64("amount", req.Amount).
		Msg("checkout session created")

	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "Authorization URL created",
		"data": gin.H{
			"authorization_url": "http://localhost:8081/checkout/" + accessCode,
			"access_code":       accessCode,
			"reference":         req.Reference,
		},
	})
}

// FireWebhook posts a signed charge.success event at a target URL, standing
// in for Paystack's webhook delivery.
func (h *Handler) FireWebhook(c *gin.Context) {
	var req struct {
		Target    string `json:"target" binding:"required"`
		Reference string `json:"reference" binding:"required"`
		Amount    int64  `json:"amount" binding:"required"`
		Event     string `json:"event"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Event == "" {
		req.Event = "charge.success"
	}

	body := []byte(fmt.Sprintf(
		`{"event":%q,"data":{"reference":%q,"amount":%d,"status":"success","channel":"mobile_money","paid_at":%q}}`,
		req.Event, req.Reference, req.Amount, time.Now().Format(time.RFC3339)))

	httpReq, err := http.NewRequest(http.MethodPost, req.Target, bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Paystack-Signature", h.sim.sign(body))

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	log.Info().
		Str("reference", req.Reference).
		Int("status", resp.StatusCode).
		Msg("webhook delivered")

	c.JSON(http.StatusOK, gin.H{"delivered": true, "target_status": resp.StatusCode})
}

/* ------------------------------ SMSOnlineGH --------------------------------- */

type smsSendRequest struct {
	Text         string   `json:"text" binding:"required"`
	Type         int      `json:"type"`
	Sender       string   `json:"sender" binding:"required"`
	Destinations []string `json:"destinations" binding:"required"`
}

func (h *Handler) SendSMS(c *gin.Context) {
	var req smsSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"handshake": gin.H{"id": 400, "label": "ERR_PARAMETER_VALUE_INVALID"},
		})
		return
	}

	h.sim.simulateLatency()

	// Real gateway reports most failures over HTTP 200 with an error label.
	if h.sim.shouldFail() {
		log.Warn().Str("sender", req.Sender).Msg("batch rejected")
		c.JSON(http.StatusOK, gin.H{
			"handshake": gin.H{"id": 603, "label": "ERR_INSUFFICIENT_CREDIT"},
		})
		return
	}

	destinations := make([]gin.H, 0, len(req.Destinations))
	for _, d := range req.Destinations {
		destinations = append(destinations, gin.H{"to": d})
	}

	log.Info().
		Str("sender", req.Sender).
		Int("destinations", len(req.Destinations)).
		Msg("batch accepted")

	c.JSON(http.StatusOK, gin.H{
		"handshake": gin.H{"id": 0, "label": "HSHK_OK"},
		"data": gin.H{
			"batch":        uuid.New().String(),
			"destinations": destinations,
		},
	})
}

/* --------------------------------- Server ----------------------------------- */

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"fail_rate": h.sim.failRate,
		"timestamp": time.Now(),
	})
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		FailRate *float64 `json:"fail_rate"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if config.FailRate != nil && *config.FailRate >= 0 && *config.FailRate <= 1.0 {
		h.sim.failRate = *config.FailRate
		log.Info().Float64("rate", *config.FailRate).Msg("updated fail rate")
	}
	c.JSON(http.StatusOK, gin.H{"fail_rate": h.sim.failRate})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request processed")
	})

	router.POST("/transaction/initialize", handler.InitializeTransaction)
	router.POST("/message/sms/send", handler.SendSMS)
	router.POST("/simulate/webhook", handler.FireWebhook)
	router.PUT("/config", handler.UpdateConfig)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8081")
	failRate := getEnvFloat("FAIL_RATE", 0)
	minDelay := getEnvDuration("MIN_DELAY", 50*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 500*time.Millisecond)
	secretKey := getEnv("SECRET_KEY", "sk_test_simulator")

	log.Info().
		Str("port", port).
		Float64("fail_rate", failRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting gateway simulator")

	sim := NewSimulator(failRate, minDelay, maxDelay, secretKey)
	handler := NewHandler(sim)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
