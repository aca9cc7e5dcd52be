package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/dal"
	"dc-purchase-api/internal/directory"
	"dc-purchase-api/internal/idgen"
	"dc-purchase-api/internal/lock"
	"dc-purchase-api/internal/logger"
	mainmodel "dc-purchase-api/internal/model/main"
	"dc-purchase-api/internal/onramp"
	"dc-purchase-api/internal/repo"
	"dc-purchase-api/internal/service"
	"dc-purchase-api/internal/utils"
)

const (
	webhookSecret = "whsec_test"
	adminToken    = "admin-secret"
	checkoutURL   = "https://pay.example.com/session"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	dir, err := os.MkdirTemp("", "dcp-handler-logs")
	if err != nil {
		panic(err)
	}
	logger.Init(dir, "error")
	if err := idgen.InitNode("default", 1); err != nil {
		panic(err)
	}
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type stubGateway struct{ *onramp.Client }

func (stubGateway) CreateCheckoutSession(context.Context, onramp.SessionRequest) (string, error) {
	return checkoutURL, nil
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(orderID, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, orderID)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ids)
}

type testEnv struct {
	router     *gin.Engine
	orders     *service.OrderService
	locker     *lock.LocalLocker
	dispatcher *recordingDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := dal.AutoMigrate(db); err != nil {
		t.Fatal(err)
	}
	ouis := repo.NewOuiRepoWithDB(db)
	if _, err := ouis.Upsert(context.Background(), []mainmodel.Oui{
		{Oui: 42, Owner: "owner42", Payer: "payer42", Escrow: "escrow42"},
		{Oui: 43, Owner: "owner43", Payer: "payer43", Escrow: "escrow43", Locked: true},
	}); err != nil {
		t.Fatal(err)
	}

	verifier := onramp.NewClient(config.OnrampCfg{}, webhookSecret, nil)
	orders := service.NewOrderService(service.OrderServiceDeps{
		Orders:    repo.NewOrderRepoWithDB(db),
		Directory: directory.New(ouis, nil, config.DirectoryCfg{}, nil, nil),
		Onramp:    stubGateway{verifier},
		Treasury:  solana.NewWallet().PublicKey().String(),
		Config:    config.OrderCfg{MinUsd: "5", MaxUsd: "1000", RedirectBaseURL: "https://example.com/order"},
	})
	locker := lock.NewLocal()
	proc := service.NewProcessor(service.ProcessorDeps{Orders: orders, Locker: locker})
	dispatcher := &recordingDispatcher{}

	router := NewRouter(RouterDeps{
		Orders:           orders,
		Webhooks:         service.NewWebhookService(orders, dispatcher, nil),
		Processor:        proc,
		Verifier:         verifier,
		WebhookTolerance: 5 * time.Minute,
		AdminToken:       adminToken,
	})
	return &testEnv{router: router, orders: orders, locker: locker, dispatcher: dispatcher}
}

type apiResp struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	TraceID string          `json:"trace_id"`
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, apiResp) {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var resp apiResp
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func (e *testEnv) createOrder(t *testing.T, oui int64, usd string) string {
	t.Helper()
	body := `{"oui":` + strconv.FormatInt(oui, 10) + `,"usd":"` + usd + `"}`
	w, resp := e.do(t, httptest.NewRequest(http.MethodPost, "/dc-purchase/orders", bytes.NewBufferString(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("create order: status %d body %s", w.Code, w.Body.String())
	}
	var created struct {
		OrderID string `json:"orderId"`
	}
	_ = json.Unmarshal(resp.Data, &created)
	return created.OrderID
}

func TestCreateOrder(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantHTTP int
		wantCode int
	}{
		{"ok", `{"oui":42,"usd":25}`, http.StatusOK, constant.CodeSuccess},
		{"string amount", `{"oui":42,"usd":"25.50"}`, http.StatusOK, constant.CodeSuccess},
		{"below minimum", `{"oui":42,"usd":"4.99"}`, http.StatusBadRequest, constant.CodeOrderAmountInvalid},
		{"above maximum", `{"oui":42,"usd":"1000.01"}`, http.StatusBadRequest, constant.CodeOrderAmountInvalid},
		{"three decimals", `{"oui":42,"usd":"10.001"}`, http.StatusBadRequest, constant.CodeInvalidParams},
		{"not a number", `{"oui":42,"usd":"ten"}`, http.StatusBadRequest, constant.CodeInvalidParams},
		{"missing oui", `{"usd":"10"}`, http.StatusBadRequest, constant.CodeInvalidParams},
		{"unknown oui", `{"oui":999,"usd":"10"}`, http.StatusNotFound, constant.CodeBeneficiaryNotFound},
		{"locked oui", `{"oui":43,"usd":"10"}`, http.StatusBadRequest, constant.CodeBeneficiaryLocked},
		{"bad email", `{"oui":42,"usd":"10","email":"nope"}`, http.StatusBadRequest, constant.CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := httptest.NewRequest(http.MethodPost, "/dc-purchase/orders", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w, resp := env.do(t, req)
			if w.Code != tt.wantHTTP || resp.Code != tt.wantCode {
				t.Fatalf("got %d/%d, want %d/%d: %s", w.Code, resp.Code, tt.wantHTTP, tt.wantCode, w.Body.String())
			}
			if resp.TraceID == "" {
				t.Error("trace_id missing")
			}
			if tt.wantCode != constant.CodeSuccess {
				return
			}
			var created struct {
				OrderID     string `json:"orderId"`
				CheckoutURL string `json:"checkoutUrl"`
				Payer       string `json:"payer"`
				Escrow      string `json:"escrow"`
			}
			if err := json.Unmarshal(resp.Data, &created); err != nil {
				t.Fatal(err)
			}
			if _, err := uuid.Parse(created.OrderID); err != nil {
				t.Errorf("orderId %q: %v", created.OrderID, err)
			}
			if created.CheckoutURL != checkoutURL || created.Payer != "payer42" || created.Escrow != "escrow42" {
				t.Errorf("unexpected response %+v", created)
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	env := newTestEnv(t)
	id := env.createOrder(t, 42, "25")

	w, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/dc-purchase/orders/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var view struct {
		OrderID      string    `json:"orderId"`
		Status       string    `json:"status"`
		UsdRequested string    `json:"usdRequested"`
		Error        *struct{} `json:"error"`
		Txs          struct {
			MintSigs []string `json:"mintSigs"`
		} `json:"txs"`
	}
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.OrderID != id || view.Status != string(constant.StatusOnrampStarted) || view.UsdRequested != "25.00" {
		t.Errorf("unexpected view %+v", view)
	}
	if view.Error != nil || view.Txs.MintSigs == nil {
		t.Errorf("error should be null and mintSigs an empty list: %s", resp.Data)
	}

	for _, path := range []string{"/dc-purchase/orders/" + uuid.NewString(), "/dc-purchase/orders/not-a-uuid"} {
		w, resp := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound || resp.Code != constant.CodeOrderNotFound {
			t.Errorf("%s: got %d/%d", path, w.Code, resp.Code)
		}
	}
}

func TestResolveOui(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		path     string
		wantHTTP int
		wantCode int
	}{
		{"/dc-purchase/oui/42", http.StatusOK, constant.CodeSuccess},
		{"/dc-purchase/oui/43", http.StatusOK, constant.CodeSuccess},
		{"/dc-purchase/oui/999", http.StatusNotFound, constant.CodeBeneficiaryNotFound},
		{"/dc-purchase/oui/abc", http.StatusBadRequest, constant.CodeBeneficiaryInvalid},
		{"/dc-purchase/oui/-1", http.StatusBadRequest, constant.CodeBeneficiaryInvalid},
	}
	for _, tt := range tests {
		w, resp := env.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.wantHTTP || resp.Code != tt.wantCode {
			t.Errorf("%s: got %d/%d, want %d/%d", tt.path, w.Code, resp.Code, tt.wantHTTP, tt.wantCode)
		}
	}

	_, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/dc-purchase/oui/42", nil))
	var got struct {
		Payer           string  `json:"payer"`
		Escrow          string  `json:"escrow"`
		EscrowDcBalance *string `json:"escrowDcBalance"`
	}
	_ = json.Unmarshal(resp.Data, &got)
	if got.Payer != "payer42" || got.Escrow != "escrow42" || got.EscrowDcBalance != nil {
		t.Errorf("unexpected resolve %+v", got)
	}
}

func signedWebhook(body string, ts time.Time, secret string) *http.Request {
	return webhookRequest(body, body, ts, secret)
}

// webhookRequest 签名内容与实际发送内容可以不同
func webhookRequest(signed, sent string, ts time.Time, secret string) *http.Request {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/dc-purchase/webhooks/onramp", bytes.NewBufferString(sent))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Timestamp", stamp)
	req.Header.Set("X-Webhook-Signature", utils.SignWebhook(secret, stamp, []byte(signed)))
	return req
}

func TestOnrampWebhook(t *testing.T) {
	env := newTestEnv(t)
	id := env.createOrder(t, 42, "25")
	o, err := env.orders.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	completed := `{"data":{"partner_user_ref":"` + o.PartnerUserRef + `","status":"completed","transaction_id":"cb-1","crypto":{"amount":"24.5"}}}`
	pending := `{"partnerUserRef":"` + o.PartnerUserRef + `","status":"pending"}`

	tests := []struct {
		name       string
		req        func() *http.Request
		wantHTTP   int
		wantCode   int
		wantAction string
	}{
		{
			name: "missing headers",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/dc-purchase/webhooks/onramp", bytes.NewBufferString(completed))
			},
			wantHTTP: http.StatusUnauthorized, wantCode: constant.CodeNotifySignError,
		},
		{
			name:     "tampered body",
			req:      func() *http.Request { return webhookRequest(completed, completed+" ", time.Now(), webhookSecret) },
			wantHTTP: http.StatusUnauthorized, wantCode: constant.CodeNotifySignError,
		},
		{
			name:     "wrong secret",
			req:      func() *http.Request { return signedWebhook(completed, time.Now(), "other") },
			wantHTTP: http.StatusUnauthorized, wantCode: constant.CodeNotifySignError,
		},
		{
			name:     "stale timestamp",
			req:      func() *http.Request { return signedWebhook(completed, time.Now().Add(-10*time.Minute), webhookSecret) },
			wantHTTP: http.StatusUnauthorized, wantCode: constant.CodeNotifyExpired,
		},
		{
			name:     "malformed json",
			req:      func() *http.Request { return signedWebhook(`{"data":`, time.Now(), webhookSecret) },
			wantHTTP: http.StatusBadRequest, wantCode: constant.CodeNotifyFormatError,
		},
		{
			name:     "missing ref",
			req:      func() *http.Request { return signedWebhook(`{"status":"completed"}`, time.Now(), webhookSecret) },
			wantHTTP: http.StatusBadRequest, wantCode: constant.CodeNotifyRefMissing,
		},
		{
			name: "unknown ref",
			req: func() *http.Request {
				return signedWebhook(`{"partnerUserRef":"dc_42_nope","status":"completed"}`, time.Now(), webhookSecret)
			},
			wantHTTP: http.StatusNotFound, wantCode: constant.CodeOrderNotFound,
		},
		{
			name:     "pending recorded",
			req:      func() *http.Request { return signedWebhook(pending, time.Now(), webhookSecret) },
			wantHTTP: http.StatusOK, wantAction: service.WebhookRecorded,
		},
		{
			name:     "completed confirms",
			req:      func() *http.Request { return signedWebhook(completed, time.Now(), webhookSecret) },
			wantHTTP: http.StatusOK, wantAction: service.WebhookConfirmed,
		},
		{
			name:     "duplicate redispatches",
			req:      func() *http.Request { return signedWebhook(completed, time.Now(), webhookSecret) },
			wantHTTP: http.StatusOK, wantAction: service.WebhookDispatched,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, tt.req())
			if w.Code != tt.wantHTTP || resp.Code != tt.wantCode {
				t.Fatalf("got %d/%d, want %d/%d: %s", w.Code, resp.Code, tt.wantHTTP, tt.wantCode, w.Body.String())
			}
			if tt.wantAction == "" {
				return
			}
			var res service.WebhookResult
			if err := json.Unmarshal(resp.Data, &res); err != nil {
				t.Fatal(err)
			}
			if res.Action != tt.wantAction || res.OrderID != id {
				t.Errorf("result %+v, want action %s", res, tt.wantAction)
			}
		})
	}

	if n := env.dispatcher.count(); n != 2 {
		t.Errorf("dispatched %d times, want 2", n)
	}
	o, _ = env.orders.GetOrder(context.Background(), id)
	if o.Status != constant.StatusPaymentConfirmed {
		t.Errorf("status %s, want payment_confirmed", o.Status)
	}
	if o.OnrampTransactionID == nil || *o.OnrampTransactionID != "cb-1" {
		t.Errorf("onramp transaction id not recorded")
	}
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	id := env.createOrder(t, 42, "25")

	auth := func(method, path, token string) *http.Request {
		r := httptest.NewRequest(method, path, nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		return r
	}
	resumePath := "/dc-purchase/admin/orders/" + id + "/resume"

	w, resp := env.do(t, auth(http.MethodPost, resumePath, ""))
	if w.Code != http.StatusUnauthorized || resp.Code != constant.CodeUnauthorized {
		t.Errorf("no token: got %d/%d", w.Code, resp.Code)
	}
	w, resp = env.do(t, auth(http.MethodPost, resumePath, "wrong"))
	if w.Code != http.StatusUnauthorized || resp.Code != constant.CodeTokenInvalid {
		t.Errorf("wrong token: got %d/%d", w.Code, resp.Code)
	}

	w, resp = env.do(t, auth(http.MethodPost, resumePath, adminToken))
	if w.Code != http.StatusOK {
		t.Fatalf("resume: %d %s", w.Code, w.Body.String())
	}
	var resumed struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	}
	_ = json.Unmarshal(resp.Data, &resumed)
	if resumed.OrderID != id || resumed.Status != string(constant.StatusOnrampStarted) {
		t.Errorf("resume result %+v", resumed)
	}

	release, ok, _ := env.locker.Acquire(context.Background(), id, time.Minute)
	if !ok {
		t.Fatal("lease not acquired")
	}
	w, resp = env.do(t, auth(http.MethodPost, resumePath, adminToken))
	if w.Code != http.StatusConflict || resp.Code != constant.CodeOrderBusy {
		t.Errorf("held lease: got %d/%d", w.Code, resp.Code)
	}
	release()

	w, resp = env.do(t, auth(http.MethodPost, "/dc-purchase/admin/orders/"+uuid.NewString()+"/resume", adminToken))
	if w.Code != http.StatusNotFound || resp.Code != constant.CodeOrderNotFound {
		t.Errorf("unknown order: got %d/%d", w.Code, resp.Code)
	}

	w, resp = env.do(t, auth(http.MethodGet, "/dc-purchase/admin/orders/"+id+"/events", adminToken))
	if w.Code != http.StatusOK {
		t.Fatalf("events: %d", w.Code)
	}
	var events []struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(resp.Data, &events)
	if len(events) < 2 || events[0].Type != constant.EventStatusChange {
		t.Errorf("events %+v", events)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/metrics"} {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, w.Code)
		}
	}
}
