package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"appliance-warranty-backend/config"
	"appliance-warranty-backend/internal/assistant"
	"appliance-warranty-backend/internal/auth"
	"appliance-warranty-backend/internal/catalog"
	"appliance-warranty-backend/internal/db"
	"appliance-warranty-backend/internal/escalation"
	"appliance-warranty-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// 2025-07-13 12:00 in Tokyo.
var testNow = time.Date(2025, 7, 13, 3, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeCatalog) Lookup(_ context.Context, model string) catalog.Result {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	brand, ok := catalog.GuessBrand(model)
	if !ok {
		return catalog.Result{}
	}
	img := "https://img.example/" + model + ".jpg"
	return catalog.Result{ImageURL: &img, Brand: &brand}
}

type fakeGenerator struct {
	reply    string
	contents []*genai.Content
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (string, error) {
	f.contents = contents
	return f.reply, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []escalation.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev escalation.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Name() string { return "recording" }

type testEnv struct {
	router    *gin.Engine
	catalog   *fakeCatalog
	gen       *fakeGenerator
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB, nil))
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})

	cfg := &config.Config{
		Auth:     config.AuthConfig{BcryptCost: 4},
		Warranty: config.WarrantyConfig{Timezone: "Asia/Tokyo", DefaultMonths: 12},
	}
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		catalog:   &fakeCatalog{},
		gen:       &fakeGenerator{reply: "①電源を入れ直してください。\n[VIDEO: 洗濯機 リセット]"},
		publisher: &recordingPublisher{},
	}
	env.router = NewRouter(Deps{
		Config:    cfg,
		Store:     store.NewGormStore(gormDB),
		Issuer:    issuer,
		Chat:      assistant.NewChat(env.gen, cfg.Assistant, nil),
		Receipts:  assistant.NewReceiptReader(env.gen, cfg.Assistant, nil),
		Catalog:   env.catalog,
		Publisher: env.publisher,
		WebPush:   &webpush.Options{VAPIDPublicKey: "BPublic"},
		Now:       func() time.Time { return testNow },
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) signup(t *testing.T, email string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) createAppliance(t *testing.T, token string, body gin.H) applianceView {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/appliances", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		Appliance applianceView `json:"appliance"`
	}](t, w).Appliance
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	token := e.signup(t, "Taro@Example.com")

	w := e.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{"email": "taro@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{"email": "short@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "taro@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "TARO@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User userView `json:"user"`
	}](t, w)
	assert.Equal(t, "taro@example.com", me.User.Email)
	assert.Equal(t, "taro", me.User.DisplayName)

	w = e.do(t, http.MethodGet, "/api/appliances", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAppliances_WarrantyView(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "a@example.com")

	a := e.createAppliance(t, token, gin.H{
		"appliance_type":  "washer",
		"brand":           "Panasonic",
		"model":           "NA-LX129AL",
		"purchase_date":   "2022-07-14",
		"warranty_months": 36,
		"image_url":       "https://img.example/own.jpg",
	})
	require.NotNil(t, a.Warranty.EndDate)
	assert.Equal(t, "2025-07-14", *a.Warranty.EndDate)
	require.NotNil(t, a.Warranty.DaysLeft)
	assert.Equal(t, 1, *a.Warranty.DaysLeft)
	assert.Equal(t, "expiring", string(a.Warranty.Status))
	assert.True(t, a.Warranty.Known)
	assert.Equal(t, "1日", a.Warranty.RemainingText)
	assert.Equal(t, 0, e.catalog.calls, "complete records skip the catalog")

	// Clearing the purchase date falls back to the optimistic default.
	w := e.do(t, http.MethodPatch, "/api/appliances/"+a.ID.String(), token, gin.H{"purchase_date": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[struct {
		Appliance applianceView `json:"appliance"`
	}](t, w).Appliance
	assert.Nil(t, updated.PurchaseDate)
	assert.Nil(t, updated.Warranty.DaysLeft)
	assert.Equal(t, "active", string(updated.Warranty.Status))
	assert.False(t, updated.Warranty.Known)
	assert.Equal(t, "Panasonic", updated.Brand, "absent keys are left alone")
	assert.Equal(t, 36, updated.WarrantyMonths)

	w = e.do(t, http.MethodPatch, "/api/appliances/"+a.ID.String(), token, gin.H{"warranty_months": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "warranty_months", decode[map[string]string](t, w)["field"])

	w = e.do(t, http.MethodGet, "/api/appliances", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Appliances []applianceView `json:"appliances"`
	}](t, w)
	require.Len(t, list.Appliances, 1)
	assert.Equal(t, a.ID, list.Appliances[0].ID)
}

func TestAppliances_WarrantyEndDate(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "end@example.com")

	a := e.createAppliance(t, token, gin.H{
		"brand":             "Daikin",
		"model":             "AN22ZRS",
		"image_url":         "https://img.example/ac.jpg",
		"purchase_date":     "2024-03-01",
		"warranty_end_date": "2027-03-01",
		"warranty_months":   12,
	})
	assert.Equal(t, 36, a.WarrantyMonths, "the end date wins over warranty_months")
	require.NotNil(t, a.Warranty.EndDate)
	assert.Equal(t, "2027-03-01", *a.Warranty.EndDate)
	assert.Equal(t, 596, *a.Warranty.DaysLeft)
	assert.Equal(t, "1年7ヶ月21日", a.Warranty.RemainingText)

	req := httptest.NewRequest(http.MethodGet, "/api/appliances/"+a.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Appliance applianceView `json:"appliance"`
	}](t, w).Appliance
	assert.Equal(t, "1y 7mo 21d", got.Warranty.RemainingText)

	w = e.do(t, http.MethodPatch, "/api/appliances/"+a.ID.String(), token, gin.H{
		"purchase_date":     "2025-01-01",
		"warranty_end_date": "2026-01-01",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 12, decode[struct {
		Appliance applianceView `json:"appliance"`
	}](t, w).Appliance.WarrantyMonths)

	w = e.do(t, http.MethodPatch, "/api/appliances/"+a.ID.String(), token, gin.H{"warranty_end_date": "2024-12-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "warranty_end_date", decode[map[string]string](t, w)["field"])

	w = e.do(t, http.MethodPost, "/api/appliances", token, gin.H{"warranty_end_date": "2027-03-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "requires purchase_date", decode[map[string]string](t, w)["error"])
}

func TestAppliances_DefaultsAndEnrichment(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "b@example.com")

	a := e.createAppliance(t, token, gin.H{"model": "NA-LX129AL", "purchase_date": "2025-01-10"})
	assert.Equal(t, "other", a.ApplianceType)
	assert.Equal(t, 12, a.WarrantyMonths)
	assert.Equal(t, "Panasonic", a.Brand)
	require.NotNil(t, a.ImageURL)
	assert.Equal(t, "https://img.example/NA-LX129AL.jpg", *a.ImageURL)
	assert.Equal(t, 1, e.catalog.calls)

	w := e.do(t, http.MethodPost, "/api/appliances", token, gin.H{"purchase_date": "2025/01/10"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppliances_Ownership(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "owner@example.com")
	other := e.signup(t, "other@example.com")
	a := e.createAppliance(t, owner, gin.H{"appliance_type": "fridge"})
	path := "/api/appliances/" + a.ID.String()

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, path, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPatch, path, other, gin.H{"brand": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, path, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, path+"/reminders", other, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/appliances/not-a-uuid", owner, nil).Code)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, path, owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, path, owner, nil).Code)
}

func TestReminders(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "r@example.com")
	a := e.createAppliance(t, token, gin.H{"appliance_type": "aircon"})
	base := "/api/appliances/" + a.ID.String() + "/reminders"

	w := e.do(t, http.MethodPost, base, token, gin.H{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"is required","field":"title"}`, w.Body.String())

	w = e.do(t, http.MethodPost, base, token, gin.H{"title": "フィルター掃除", "interval_months": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, base, token, gin.H{
		"title":           "フィルター掃除",
		"interval_months": 3,
		"last_done_date":  "2024-01-01",
		"next_due_date":   "2030-01-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	r := decode[struct {
		Reminder reminderView `json:"reminder"`
	}](t, w).Reminder
	require.NotNil(t, r.NextDueDate)
	assert.Equal(t, "2024-04-01", *r.NextDueDate, "next_due_date is derived, never accepted")
	assert.Equal(t, "overdue", string(r.Urgency))
	assert.True(t, r.Enabled)

	path := base + "/" + r.ID.String()
	w = e.do(t, http.MethodPost, path+"/complete", token, gin.H{"last_done_date": "2024-06-01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r = decode[struct {
		Reminder reminderView `json:"reminder"`
	}](t, w).Reminder
	assert.Equal(t, "2024-06-01", *r.LastDoneDate)
	assert.Equal(t, "2024-09-01", *r.NextDueDate)

	// Without a body the task is completed today.
	w = e.do(t, http.MethodPost, path+"/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r = decode[struct {
		Reminder reminderView `json:"reminder"`
	}](t, w).Reminder
	assert.Equal(t, "2025-07-13", *r.LastDoneDate)
	assert.Equal(t, "2025-10-13", *r.NextDueDate)
	assert.Equal(t, "ok", string(r.Urgency))
	require.NotNil(t, r.DaysUntil)
	assert.Equal(t, 92, *r.DaysUntil)

	w = e.do(t, http.MethodPost, path+"/complete", token, gin.H{"last_done_date": "2025-07-01", "interval_months": 6})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r = decode[struct {
		Reminder reminderView `json:"reminder"`
	}](t, w).Reminder
	assert.Equal(t, 6, r.IntervalMonths, "completion can change the interval")
	assert.Equal(t, "2026-01-01", *r.NextDueDate)

	w = e.do(t, http.MethodPost, path+"/complete", token, gin.H{"interval_months": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "interval_months", decode[map[string]string](t, w)["field"])

	w = e.do(t, http.MethodPatch, path, token, gin.H{"interval_months": 1, "last_done_date": "2025-07-01", "enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	r = decode[struct {
		Reminder reminderView `json:"reminder"`
	}](t, w).Reminder
	assert.Equal(t, "2025-08-01", *r.NextDueDate)
	assert.Equal(t, "soon", string(r.Urgency))
	assert.False(t, r.Enabled)

	w = e.do(t, http.MethodPatch, path, token, gin.H{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Reminders []reminderView `json:"reminders"`
	}](t, w)
	assert.Len(t, list.Reminders, 1)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, path, token, nil).Code)
}

func TestHistory(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "h@example.com")
	a := e.createAppliance(t, token, gin.H{"appliance_type": "tv", "purchase_date": "2020-01-01"})
	path := "/api/appliances/" + a.ID.String() + "/history"

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, path, token, gin.H{"symptom": ""}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, path, token, gin.H{"symptom": "x", "status": "bogus"}).Code)

	w := e.do(t, http.MethodPost, path, token, gin.H{"symptom": "電源が入らない", "warranty_status": "active"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ticket := decode[struct {
		Ticket ticketView `json:"ticket"`
	}](t, w).Ticket
	require.NotNil(t, ticket.WarrantyStatus)
	assert.Equal(t, "expired", *ticket.WarrantyStatus, "snapshot is computed server-side")
	assert.Equal(t, "in_progress", ticket.Status)

	w = e.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		History []ticketView `json:"history"`
	}](t, w).History
	require.Len(t, history, 1)
	assert.Equal(t, ticket.ID, history[0].ID)
}

func TestChatAndEscalation(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "c@example.com")
	a := e.createAppliance(t, token, gin.H{
		"appliance_type": "washer", "brand": "Panasonic", "model": "NA-LX129AL",
		"purchase_date": "2024-08-01", "warranty_months": 12,
	})

	w := e.do(t, http.MethodPost, "/api/chat", token, gin.H{"messages": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/chat", token, gin.H{
		"messages":     []gin.H{{"role": "user", "content": "エラーH21が出ます"}},
		"appliance_id": a.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[chatResponse](t, w)
	assert.Equal(t, "①電源を入れ直してください。", resp.Text)
	require.Len(t, resp.Videos, 1)
	assert.Equal(t, "洗濯機 リセット", resp.Videos[0].Query)
	assert.NotEqual(t, uuid.Nil, resp.ConversationID)

	w = e.do(t, http.MethodPost, "/api/chat", token, gin.H{
		"messages": []gin.H{
			{"role": "user", "content": "エラーH21が出ます"},
			{"role": "assistant", "content": resp.Reply},
			{"role": "user", "content": "直りません"},
		},
		"conversation_id": resp.ConversationID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, resp.ConversationID, decode[chatResponse](t, w).ConversationID)
	require.Len(t, e.gen.contents, 3)
	assert.Equal(t, string(genai.RoleModel), e.gen.contents[1].Role)

	other := e.signup(t, "intruder@example.com")
	w = e.do(t, http.MethodPost, "/api/chat", other, gin.H{
		"messages":        []gin.H{{"role": "user", "content": "hi"}},
		"conversation_id": resp.ConversationID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/api/escalations", token, gin.H{"conversation_id": resp.ConversationID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/escalations", token, gin.H{
		"conversation_id": resp.ConversationID,
		"appliance_id":    a.ID,
		"symptom":         "エラーH21",
		"ai_summary":      "リセットで改善せず",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	esc := decode[map[string]any](t, w)
	assert.Equal(t, "new", esc["status"])
	assert.Equal(t, "エスカレーションチケットを作成しました", esc["message"])

	require.Len(t, e.publisher.events, 1)
	ev := e.publisher.events[0]
	assert.Equal(t, esc["ticketId"], ev.TicketID)
	assert.Equal(t, "エラーH21", ev.Symptom)
	require.NotNil(t, ev.Appliance)
	assert.Equal(t, "2025-08-01", *ev.Appliance.WarrantyEnd)
	assert.Equal(t, "expiring", ev.Appliance.WarrantyStatus)

	w = e.do(t, http.MethodPost, "/api/conversations/"+resp.ConversationID.String()+"/resolve", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodPost, "/api/conversations/"+uuid.NewString()+"/resolve", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadReceipt(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "ocr@example.com")
	e.gen.reply = "```json\n{\"modelNumber\":\"NA-LX129AL\",\"purchaseDate\":\"2024-03-01\",\"storeName\":null}\n```"

	img := base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	w := e.do(t, http.MethodPost, "/api/read-receipt", token, gin.H{"image_base64": "data:image/png;base64," + img})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"model_number":"NA-LX129AL","purchase_date":"2024-03-01","store_name":null}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/read-receipt", token, gin.H{"image_base64": "%%%"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotifications(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "n@example.com")

	e.createAppliance(t, token, gin.H{"appliance_type": "fridge", "purchase_date": "2024-08-01"})
	e.createAppliance(t, token, gin.H{"appliance_type": "tv", "purchase_date": "2020-01-01"})
	fresh := e.createAppliance(t, token, gin.H{"appliance_type": "aircon", "purchase_date": "2025-06-01"})

	base := "/api/appliances/" + fresh.ID.String() + "/reminders"
	w := e.do(t, http.MethodPost, base, token, gin.H{"title": "掃除", "last_done_date": "2025-06-01"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(t, http.MethodPost, base, token, gin.H{"title": "点検", "interval_months": 12, "last_done_date": "2025-05-01"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodGet, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[struct {
		Notifications []notificationView `json:"notifications"`
	}](t, w).Notifications
	require.Len(t, items, 2, "old expiries and distant reminders are left out")
	assert.Equal(t, "reminder", items[0].Kind)
	assert.Equal(t, "overdue", items[0].State)
	assert.Equal(t, -12, items[0].Days)
	assert.Equal(t, "warranty", items[1].Kind)
	assert.Equal(t, "expiring", items[1].State)
	assert.Equal(t, 19, items[1].Days)
}

func TestHousehold(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "owner@example.com")
	guest := e.signup(t, "guest@example.com")

	w := e.do(t, http.MethodGet, "/api/household", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"household":null}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/household", owner, gin.H{"action": "create"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		Household householdView `json:"household"`
	}](t, w).Household
	assert.Len(t, created.Code, 6)

	w = e.do(t, http.MethodPost, "/api/household", owner, gin.H{"action": "create"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/household", guest, gin.H{"action": "join", "code": "ZZZZZZ"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodPost, "/api/household", guest, gin.H{"action": "join", "code": "O0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPost, "/api/household", guest, gin.H{"action": "leave"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/household", guest, gin.H{"action": "join", "code": " " + created.Code + " "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	joined := decode[struct {
		Household householdView `json:"household"`
	}](t, w).Household
	require.Len(t, joined.Members, 2)
	roles := map[string]string{}
	for _, m := range joined.Members {
		roles[m.DisplayName] = m.Role
	}
	assert.Equal(t, map[string]string{"owner": "owner", "guest": "member"}, roles)

	w = e.do(t, http.MethodPost, "/api/household", guest, gin.H{"action": "join", "code": created.Code})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubscriptions(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "s@example.com")

	w := e.do(t, http.MethodPut, "/api/subscriptions", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	sub := gin.H{"endpoint": "https://push.example/abc", "keys": gin.H{"p256dh": "key", "auth": "secret"}}
	assert.Equal(t, http.StatusCreated, e.do(t, http.MethodPut, "/api/subscriptions", token, sub).Code)
	assert.Equal(t, http.StatusCreated, e.do(t, http.MethodPut, "/api/subscriptions", token, sub).Code)
	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/subscriptions", token, gin.H{"endpoint": "https://push.example/abc"}).Code)

	w = e.do(t, http.MethodGet, "/api/vapid_public_key", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"BPublic"}`, w.Body.String())
}

func TestProductImage_Cached(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/product-image", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for i := range 2 {
		w = e.do(t, http.MethodGet, "/api/product-image?model=NA-LX129AL", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"imageUrl":"https://img.example/NA-LX129AL.jpg","brand":"Panasonic"}`, w.Body.String())
		if i == 1 {
			assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
		}
	}
	assert.Equal(t, 1, e.catalog.calls)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","assistant":true,"ocr":true,"push":true}`, w.Body.String())
}
