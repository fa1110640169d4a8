package e2e

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/asuogyaman/constituency-gateway/internal/auth"
	"github.com/asuogyaman/constituency-gateway/internal/dedup"
	gateway "github.com/asuogyaman/constituency-gateway/internal/gateways"
	"github.com/asuogyaman/constituency-gateway/internal/handlers"
	"github.com/asuogyaman/constituency-gateway/internal/model"
	"github.com/asuogyaman/constituency-gateway/internal/repository"
	"github.com/asuogyaman/constituency-gateway/internal/services"
	"github.com/asuogyaman/constituency-gateway/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const (
	webhookSecret = "whsec_e2e_test"
	jwtSecret     = "jwt_e2e_test"
)

func signBody(body []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(handler *handlers.PaymentHandler, body []byte, signature string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&fasthttp.Request{}, nil, nil)
	ctx.Request.Header.SetMethod("POST")
	ctx.Request.SetRequestURI("/api/v1/payments/webhook")
	ctx.Request.SetBody(body)
	ctx.Request.Header.Set(gateway.SignatureHeader, signature)
	handler.HandleWebhook(ctx)
	return ctx
}

func TestContributionPaymentFlow(t *testing.T) {
	db := helpers.SetupTestDB(t)
	_, redisAdapter := helpers.SetupTestRedis(t)

	paystackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		var req gateway.InitializeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/e2e","access_code":"e2e","reference":%q}}`, req.Reference)
	}))
	defer paystackSrv.Close()

	paystackClient := gateway.NewPaystackClient(gateway.PaystackConfig{
		SecretKey: "sk_test_e2e",
		BaseURL:   paystackSrv.URL,
	})

	contributionRepo := repository.NewContributionRepository(db)
	deduper := dedup.New(redisAdapter, dedup.DefaultConfig())
	paymentService := services.NewPaymentService(paystackClient, contributionRepo, webhookSecret, deduper)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	ctx := context.Background()

	t.Run("initialize then reconcile completes the contribution", func(t *testing.T) {
		helpers.CreateTestContribution(t, db, "CONTRIB-E2E-1", 50, "pending")

		resp, err := paymentService.Initialize(ctx, gateway.InitializeRequest{
			Email:       "ama@example.com",
			Amount:      5000,
			Reference:   "CONTRIB-E2E-1",
			CallbackURL: "https://portal.example.com/thanks",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paystack.com/e2e", resp.AuthorizationURL)

		body := []byte(`{"event":"charge.success","data":{"reference":"CONTRIB-E2E-1","amount":5000,"status":"success"}}`)
		rctx := postWebhook(paymentHandler, body, signBody(body))
		assert.Equal(t, 200, rctx.Response.StatusCode())
		assert.Contains(t, string(rctx.Response.Body()), "completed")

		stored, err := contributionRepo.GetByReference(ctx, "CONTRIB-E2E-1")
		require.NoError(t, err)
		assert.Equal(t, model.ContributionStatusCompleted, stored.Status)
	})

	t.Run("redelivery is acknowledged without a second transition", func(t *testing.T) {
		body := []byte(`{"event":"charge.success","data":{"reference":"CONTRIB-E2E-1","amount":5000,"status":"success"}}`)
		rctx := postWebhook(paymentHandler, body, signBody(body))
		assert.Equal(t, 200, rctx.Response.StatusCode())
		assert.Contains(t, string(rctx.Response.Body()), "already_processed")

		stored, err := contributionRepo.GetByReference(ctx, "CONTRIB-E2E-1")
		require.NoError(t, err)
		assert.Equal(t, model.ContributionStatusCompleted, stored.Status)
	})

	t.Run("amount mismatch fails the contribution", func(t *testing.T) {
		helpers.CreateTestContribution(t, db, "CONTRIB-E2E-2", 50, "pending")

		body := []byte(`{"event":"charge.success","data":{"reference":"CONTRIB-E2E-2","amount":4000,"status":"success"}}`)
		rctx := postWebhook(paymentHandler, body, signBody(body))
		assert.Equal(t, 400, rctx.Response.StatusCode())
		assert.Contains(t, string(rctx.Response.Body()), "amount mismatch")

		stored, err := contributionRepo.GetByReference(ctx, "CONTRIB-E2E-2")
		require.NoError(t, err)
		assert.Equal(t, model.ContributionStatusFailed, stored.Status)
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		body := []byte(`{"event":"charge.success","data":{"reference":"CONTRIB-E2E-1","amount":5000}}`)
		tampered := []byte(`{"event":"charge.success","data":{"reference":"CONTRIB-E2E-1","amount":9999}}`)
		rctx := postWebhook(paymentHandler, tampered, signBody(body))
		assert.Equal(t, 401, rctx.Response.StatusCode())
	})
}

func TestSmsDispatchFlow(t *testing.T) {
	db := helpers.SetupTestDB(t)

	helpers.CreateTestProfile(t, db, "admin-e2e", "Efua Owusu", "admin")
	helpers.CreateTestProfile(t, db, "constituent-e2e", "Yaa Serwaa", "constituent")

	smsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/message/sms/send", r.URL.Path)
		var req struct {
			Destinations []string `json:"destinations"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		destinations := ""
		for i, d := range req.Destinations {
			if i > 0 {
				destinations += ","
			}
			destinations += fmt.Sprintf(`{"to":%q}`, d)
		}
		fmt.Fprintf(w, `{"handshake":{"id":0,"label":"HSHK_OK"},"data":{"batch":"batch-e2e","destinations":[%s]}}`, destinations)
	}))
	defer smsSrv.Close()

	smsClient := gateway.NewSMSOnlineClient(gateway.SMSOnlineConfig{
		APIKey:  "key-e2e",
		BaseURL: smsSrv.URL,
	})

	profileRepo := repository.NewProfileRepository(db)
	messageLogRepo := repository.NewMessageLogRepository(db)
	smsService := services.NewSmsService(smsClient, profileRepo, messageLogRepo, "ASSEMBLY")
	smsHandler := handlers.NewSmsHandler(smsService, auth.NewTokenVerifier(jwtSecret))

	sendSms := func(subject string, body []byte) *fasthttp.RequestCtx {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject})
		signed, err := token.SignedString([]byte(jwtSecret))
		require.NoError(t, err)

		ctx := &fasthttp.RequestCtx{}
		ctx.Init(&fasthttp.Request{}, nil, nil)
		ctx.Request.Header.SetMethod("POST")
		ctx.Request.SetRequestURI("/api/v1/sms/send")
		ctx.Request.SetBody(body)
		ctx.Request.Header.Set("Authorization", "Bearer "+signed)
		smsHandler.SendSms(ctx)
		return ctx
	}

	t.Run("admin dispatch logs one row per recipient", func(t *testing.T) {
		body := []byte(`{"recipients":["0241234567",{"phone":"0209876543","name":"Kwame Boateng"}],"message":"Town hall on Friday"}`)
		rctx := sendSms("admin-e2e", body)
		assert.Equal(t, 200, rctx.Response.StatusCode())
		assert.Contains(t, string(rctx.Response.Body()), `"sent":2`)

		batchID := "batch-e2e"
		logs, total, err := messageLogRepo.List(context.Background(), model.MessageLogFilter{BatchID: &batchID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, logs, 2)

		bodies := []string{logs[0].Body, logs[1].Body}
		assert.Contains(t, bodies, "Town hall on Friday||NAME||0241234567")
		assert.Contains(t, bodies, "Town hall on Friday||NAME||Kwame Boateng")
		for _, l := range logs {
			assert.Equal(t, "admin-e2e", l.SenderID)
			assert.Equal(t, model.MessageStatusSent, l.Status)
		}
	})

	t.Run("constituent is rejected and nothing is logged", func(t *testing.T) {
		body := []byte(`{"recipients":["0241234567"],"message":"should not go out"}`)
		rctx := sendSms("constituent-e2e", body)
		assert.Equal(t, 403, rctx.Response.StatusCode())

		sender := "constituent-e2e"
		_, total, err := messageLogRepo.List(context.Background(), model.MessageLogFilter{SenderID: &sender})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}
