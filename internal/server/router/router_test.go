package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmer/internal/repository/memory"
	"github.com/mamadbah2/farmer/internal/server/handlers"
	"github.com/mamadbah2/farmer/internal/server/middleware"
	"github.com/mamadbah2/farmer/internal/service/clock"
	"github.com/mamadbah2/farmer/internal/service/finance"
	"github.com/mamadbah2/farmer/internal/service/flock"
	"github.com/mamadbah2/farmer/internal/service/production"
	"github.com/mamadbah2/farmer/internal/service/reminders"
	"github.com/mamadbah2/farmer/internal/service/vaccination"
)

const testSecret = "router-test-secret"

var testNow = time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

type apiFixture struct {
	engine *gin.Engine
	store  *memory.Store
	owner  primitive.ObjectID
	token  string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	clk := clock.Fixed(testNow)
	financeSvc := finance.NewService(store, clk, nil)
	vaccinationSvc := vaccination.NewService(store, financeSvc, clk, nil)
	flockSvc := flock.NewService(store, financeSvc, vaccinationSvc, nil, clk, nil)
	productionSvc := production.NewService(store, financeSvc, clk, nil)
	remindersSvc := reminders.NewService(store, clk, reminders.Channels{}, nil)

	engine := New(Handlers{
		Batches:       handlers.NewBatchHandler(flockSvc, vaccinationSvc, nil, time.UTC, nil),
		Logs:          handlers.NewLogHandler(flockSvc, productionSvc, time.UTC, nil),
		Vaccinations:  handlers.NewVaccinationHandler(vaccinationSvc, time.UTC, nil),
		Finances:      handlers.NewFinanceHandler(financeSvc, time.UTC, nil),
		Notifications: handlers.NewNotificationHandler(remindersSvc, time.UTC, nil),
	}, testSecret, nil)

	owner := primitive.NewObjectID()
	token, err := middleware.IssueToken(testSecret, owner, "farmer@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &apiFixture{engine: engine, store: store, owner: owner, token: token}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return out
}

type batchResponse struct {
	ID          string   `json:"id"`
	BatchCode   string   `json:"batch_code"`
	CurrentSize int      `json:"current_size"`
	CostPerBird *float64 `json:"cost_per_bird"`
	AgeInDays   int      `json:"age_in_days"`
}

func (f *apiFixture) createBatch(t *testing.T) batchResponse {
	t.Helper()
	status, env := f.do(t, http.MethodPost, "/api/batches", map[string]any{
		"name":         "Layers A",
		"breed":        "Isa Brown",
		"initial_size": 100,
		"start_date":   "2024-07-01",
		"total_cost":   500,
	})
	if status != http.StatusCreated {
		t.Fatalf("create batch: status %d (%s)", status, env.Error)
	}
	return decode[batchResponse](t, env)
}

func TestHealthzIsPublic(t *testing.T) {
	f := newAPIFixture(t)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	f := newAPIFixture(t)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBatchLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	batch := f.createBatch(t)

	if batch.CurrentSize != 100 || batch.CostPerBird == nil || *batch.CostPerBird != 5 {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if batch.AgeInDays != 31 {
		t.Fatalf("expected age 31, got %d", batch.AgeInDays)
	}

	status, env := f.do(t, http.MethodPost, "/api/mortality", map[string]any{
		"batch_id": batch.ID,
		"count":    10,
		"notes":    "heat",
	})
	if status != http.StatusCreated {
		t.Fatalf("record mortality: status %d (%s)", status, env.Error)
	}

	status, env = f.do(t, http.MethodGet, "/api/batches/"+batch.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("get batch: status %d", status)
	}
	if got := decode[batchResponse](t, env); got.CurrentSize != 90 {
		t.Fatalf("expected size 90, got %d", got.CurrentSize)
	}

	status, env = f.do(t, http.MethodGet, "/api/transactions?type=expense&batch="+batch.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("list transactions: status %d", status)
	}
	txs := decode[[]struct {
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
	}](t, env)
	if len(txs) != 1 || txs[0].Amount != 500 || txs[0].Category != "Stock Purchase" {
		t.Fatalf("unexpected ledger %+v", txs)
	}

	status, _ = f.do(t, http.MethodDelete, "/api/batches/"+batch.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("delete batch: status %d", status)
	}
	status, _ = f.do(t, http.MethodGet, "/api/batches/"+batch.ID, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	batch := f.createBatch(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		field  string
	}{
		{"missing fields", http.MethodPost, "/api/batches", map[string]any{}, http.StatusBadRequest, "name"},
		{"malformed id", http.MethodGet, "/api/batches/not-an-id", nil, http.StatusBadRequest, ""},
		{"unknown batch", http.MethodGet, "/api/batches/" + primitive.NewObjectID().Hex(), nil, http.StatusNotFound, ""},
		{"bad date", http.MethodPost, "/api/eggs", map[string]any{"batch_id": batch.ID, "collected": 1, "date": "yesterday"}, http.StatusBadRequest, "date"},
		{"unknown period", http.MethodGet, "/api/finances/analytics?period=decade", nil, http.StatusBadRequest, "period"},
		{"bad transaction type", http.MethodGet, "/api/transactions?type=gift", nil, http.StatusBadRequest, "type"},
		{"gender overflow", http.MethodPatch, "/api/batches/" + batch.ID, map[string]any{"male_count": 60, "female_count": 50}, http.StatusConflict, ""},
		{"export disabled", http.MethodPost, "/api/batches/" + batch.ID + "/export", nil, http.StatusServiceUnavailable, ""},
		{"feed bag count", http.MethodPost, "/api/feed", map[string]any{"type": "Layer mash", "price": 300, "bags": 0, "kg_per_bag": 50}, http.StatusBadRequest, "bags"},
		{"transaction type rule", http.MethodPost, "/api/transactions", map[string]any{"type": "gift", "category": "Other", "amount": 5, "description": "x"}, http.StatusBadRequest, "type"},
		{"negative egg price", http.MethodPost, "/api/eggs", map[string]any{"batch_id": batch.ID, "collected": 3, "price_per_egg": -1}, http.StatusBadRequest, "price_per_egg"},
		{"empty template list", http.MethodPost, "/api/batches/" + batch.ID + "/vaccines", map[string]any{"template_ids": []string{}}, http.StatusBadRequest, "template_ids"},
		{"mark read without target", http.MethodPatch, "/api/notifications", map[string]any{}, http.StatusBadRequest, "notification_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := f.do(t, tt.method, tt.path, tt.body)
			if status != tt.status {
				t.Fatalf("status %d, want %d (%s)", status, tt.status, env.Error)
			}
			if env.Success {
				t.Fatalf("expected success=false")
			}
			if tt.field != "" {
				if _, found := env.Details[tt.field]; !found {
					t.Fatalf("expected details for %s, got %v", tt.field, env.Details)
				}
			}
		})
	}
}

func TestTransactionEndDateCoversWholeDay(t *testing.T) {
	f := newAPIFixture(t)
	status, env := f.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "income",
		"category":    "Bird Sales",
		"amount":      120,
		"description": "Sold 4 cockerels",
		"date":        "2024-07-15T18:00:00Z",
	})
	if status != http.StatusCreated {
		t.Fatalf("create transaction: status %d (%s)", status, env.Error)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"?startDate=2024-07-15&endDate=2024-07-15", 1},
		{"?endDate=2024-07-14", 0},
		{"?startDate=2024-07-16", 0},
		{"?category=Bird%20Sales", 1},
	}
	for _, tt := range tests {
		status, env := f.do(t, http.MethodGet, "/api/transactions"+tt.query, nil)
		if status != http.StatusOK {
			t.Fatalf("%s: status %d", tt.query, status)
		}
		if got := decode[[]json.RawMessage](t, env); len(got) != tt.want {
			t.Fatalf("%s: got %d transactions, want %d", tt.query, len(got), tt.want)
		}
	}
}

func TestRemindersAndInboxOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	batch := f.createBatch(t)

	// Started 2024-07-01, so day 31 is today.
	status, env := f.do(t, http.MethodPost, "/api/vaccinations", map[string]any{
		"batch_id":     batch.ID,
		"vaccine_name": "Newcastle",
		"age_in_days":  31,
	})
	if status != http.StatusCreated {
		t.Fatalf("schedule vaccination: status %d (%s)", status, env.Error)
	}

	status, env = f.do(t, http.MethodPost, "/api/reminders/check", nil)
	if status != http.StatusOK {
		t.Fatalf("check reminders: status %d (%s)", status, env.Error)
	}
	if res := decode[reminders.Result](t, env); res.Created != 1 {
		t.Fatalf("expected one reminder, got %+v", res)
	}

	status, env = f.do(t, http.MethodGet, "/api/notifications?unread=true", nil)
	if status != http.StatusOK {
		t.Fatalf("inbox: status %d", status)
	}
	inbox := decode[struct {
		Notifications []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"notifications"`
		UnreadCount int `json:"unread_count"`
	}](t, env)
	if inbox.UnreadCount != 1 || len(inbox.Notifications) != 1 || inbox.Notifications[0].Title != "Vaccination Reminder" {
		t.Fatalf("unexpected inbox %+v", inbox)
	}

	status, env = f.do(t, http.MethodPatch, "/api/notifications", map[string]any{"notification_id": inbox.Notifications[0].ID})
	if status != http.StatusOK {
		t.Fatalf("mark read: status %d (%s)", status, env.Error)
	}

	status, env = f.do(t, http.MethodGet, "/api/notifications?unread=true", nil)
	if status != http.StatusOK {
		t.Fatalf("inbox: status %d", status)
	}
	if got := decode[reminders.Inbox](t, env); got.UnreadCount != 0 || len(got.Notifications) != 0 {
		t.Fatalf("expected empty unread inbox, got %+v", got)
	}
}

func TestTemplatesAndCompletionOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	batch := f.createBatch(t)

	status, env := f.do(t, http.MethodPost, "/api/vaccine-templates", map[string]any{
		"name":         "Gumboro",
		"default_cost": 25,
		"age_in_days":  14,
	})
	if status != http.StatusCreated {
		t.Fatalf("create template: status %d (%s)", status, env.Error)
	}
	template := decode[struct {
		ID string `json:"id"`
	}](t, env)

	status, env = f.do(t, http.MethodPost, "/api/batches/"+batch.ID+"/vaccines", map[string]any{
		"template_ids": []string{template.ID},
	})
	if status != http.StatusCreated {
		t.Fatalf("add vaccines: status %d (%s)", status, env.Error)
	}
	scheduled := decode[[]struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, env)
	if len(scheduled) != 1 {
		t.Fatalf("expected one vaccination, got %d", len(scheduled))
	}

	status, env = f.do(t, http.MethodPatch, "/api/vaccinations/"+scheduled[0].ID, map[string]any{
		"completed_date": "2024-07-15",
		"actual_cost":    30,
	})
	if status != http.StatusOK {
		t.Fatalf("complete: status %d (%s)", status, env.Error)
	}

	status, env = f.do(t, http.MethodGet, "/api/transactions?category=Vaccines", nil)
	if status != http.StatusOK {
		t.Fatalf("list transactions: status %d", status)
	}
	if got := decode[[]json.RawMessage](t, env); len(got) != 1 {
		t.Fatalf("expected one vaccine expense, got %d", len(got))
	}

	status, _ = f.do(t, http.MethodPatch, "/api/vaccinations/"+scheduled[0].ID, map[string]any{})
	if status != http.StatusConflict {
		t.Fatalf("completing twice: expected 409, got %d", status)
	}
}
