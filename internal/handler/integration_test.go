//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/app"
	"github.com/homedeliver/api/internal/auth"
	"github.com/homedeliver/api/internal/config"
	"github.com/homedeliver/api/internal/router"
	"github.com/homedeliver/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegrationFlow drives a client from creation through a saved order
// configuration and a lifecycle sweep against a real PostgreSQL database.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:           "8081",
		DatabaseURL:    connStr,
		JWTSecret:      "integration-test-secret",
		AllowedOrigins: []string{"http://localhost:5173"},
		CutoffDay:      "Friday",
		CutoffTime:     "12:00",
		CutoffLocation: "UTC",
	}
	hub := ws.NewHub()
	go hub.Run()

	svc := app.NewServices(cfg, pool, app.Options{Broadcaster: hub})
	server := httptest.NewServer(router.New(cfg, svc, hub))
	defer server.Close()

	// --- 1. Seed vendor, menu item and admin (no API for these) ---
	vendorID := createVendor(t, ctx, pool)
	itemID := createMenuItem(t, ctx, pool, vendorID)
	createAdminUser(t, ctx, pool)

	// --- 2. Login ---
	token := login(t, server, "admin@test.com", "password123")

	// --- 3. Create client ---
	clientResp := httpPostJSON(t, server, "/clients", map[string]interface{}{
		"full_name":         "Jane Client",
		"service_type":      "Food",
		"authorized_amount": "500",
	}, token)
	clientID := uuid.MustParse(clientResp["id"].(string))
	if n, _ := clientResp["client_number"].(float64); n < 1 {
		t.Fatalf("client_number: got %v, want >= 1", clientResp["client_number"])
	}

	// --- 4. Save a Food configuration: 2 x 12.50 ---
	saveResp := httpPutJSON(t, server, fmt.Sprintf("/clients/%s/order-config", clientID), map[string]interface{}{
		"serviceType": "Food",
		"caseId":      "CASE-1",
		"vendorSelections": []map[string]interface{}{
			{"vendorId": vendorID.String(), "items": map[string]int{itemID.String(): 2}},
		},
	}, token)
	scheduled, ok := saveResp["scheduled_orders"].([]interface{})
	if !ok || len(scheduled) != 1 {
		t.Fatalf("scheduled_orders: got %v, want 1 entry", saveResp["scheduled_orders"])
	}
	header := scheduled[0].(map[string]interface{})
	if header["total_value"] != "25.00" {
		t.Fatalf("scheduled total_value: got %v, want 25.00", header["total_value"])
	}
	if header["total_items"].(float64) != 2 {
		t.Fatalf("scheduled total_items: got %v, want 2", header["total_items"])
	}
	if header["take_effect_date"] == "" {
		t.Fatal("take_effect_date should be set when the vendor delivers")
	}

	// --- 5. Saved document round-trips ---
	got := httpGetJSON(t, server, fmt.Sprintf("/clients/%s/order-config", clientID), token)
	if got["client_id"] != clientID.String() {
		t.Fatalf("order-config client_id: got %v, want %s", got["client_id"], clientID)
	}

	// --- 6. Nothing is due until the take-effect date passes ---
	sweep := httpPostJSON(t, server, "/lifecycle/sweep", nil, token)
	if sweep["processed_count"].(float64) != 0 {
		t.Fatalf("sweep before take-effect: processed %v, want 0", sweep["processed_count"])
	}

	makeDue(t, ctx, pool, clientID)

	// --- 7. Sweep places the order once ---
	sweep = httpPostJSON(t, server, "/lifecycle/sweep", nil, token)
	if sweep["processed_count"].(float64) != 1 {
		t.Fatalf("sweep: processed %v, want 1 (errors: %v)", sweep["processed_count"], sweep["errors"])
	}
	again := httpPostJSON(t, server, "/lifecycle/sweep", nil, token)
	if again["processed_count"].(float64) != 0 {
		t.Fatalf("second sweep: processed %v, want 0", again["processed_count"])
	}

	orderID, orderNumber, total := placedOrder(t, ctx, pool, clientID)
	if orderNumber < 100000 {
		t.Fatalf("order_number: got %d, want >= 100000", orderNumber)
	}
	if total != "25.00" {
		t.Fatalf("placed total_value: got %s, want 25.00", total)
	}

	// --- 8. History records the save and the placement ---
	history := httpGetList(t, server, fmt.Sprintf("/clients/%s/history", clientID), token)
	if len(history) < 2 {
		t.Fatalf("history: got %d entries, want at least 2", len(history))
	}

	// --- 9. Billing cannot settle before proof is attached ---
	status, body := httpDo(t, server, http.MethodPatch, fmt.Sprintf("/orders/%s/billing-status", orderID),
		map[string]interface{}{"status": "successful"}, token)
	if status != http.StatusConflict {
		t.Fatalf("billing-status on pending order: got %d (%s), want 409", status, body)
	}

	// --- 10. Navigator cannot run the sweep ---
	status, _ = httpDo(t, server, http.MethodPost, "/lifecycle/sweep", nil, navigatorToken(t, cfg.JWTSecret))
	if status != http.StatusForbidden {
		t.Fatalf("navigator sweep: got %d, want 403", status)
	}

	t.Log("Integration flow completed")
}

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("homedeliver_test"),
		tcpostgres.WithUsername("homedeliver"),
		tcpostgres.WithPassword("homedeliver"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Relative to internal/handler, the package directory go test runs in.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createVendor(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO vendors (name, delivery_days)
		 VALUES ('Fresh Meals', '{Monday,Tuesday,Wednesday,Thursday,Friday,Saturday,Sunday}')
		 RETURNING id`,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return id
}

func createMenuItem(t *testing.T, ctx context.Context, pool *pgxpool.Pool, vendorID uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO menu_items (vendor_id, name, price_each) VALUES ($1, 'Soup', 12.50) RETURNING id`,
		vendorID,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	return id
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (email, full_name, hashed_password, role)
		 VALUES ('admin@test.com', 'Test Admin', $1, 'ADMIN')
		 RETURNING id`,
		hash,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	return id
}

// makeDue backdates the client's scheduled orders so the next sweep picks
// them up. There is no API for moving the take-effect date.
func makeDue(t *testing.T, ctx context.Context, pool *pgxpool.Pool, clientID uuid.UUID) {
	t.Helper()
	_, err := pool.Exec(ctx,
		`UPDATE scheduled_orders SET take_effect_date = CURRENT_DATE - 1 WHERE client_id = $1`,
		clientID,
	)
	if err != nil {
		t.Fatalf("backdate scheduled orders: %v", err)
	}
}

func placedOrder(t *testing.T, ctx context.Context, pool *pgxpool.Pool, clientID uuid.UUID) (uuid.UUID, int64, string) {
	t.Helper()
	var (
		id     uuid.UUID
		number int64
		total  string
	)
	err := pool.QueryRow(ctx,
		`SELECT id, order_number, total_value::text FROM orders WHERE client_id = $1`,
		clientID,
	).Scan(&id, &number, &total)
	if err != nil {
		t.Fatalf("load placed order: %v", err)
	}
	return id, number, total
}

func navigatorToken(t *testing.T, secret string) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, uuid.New(), uuid.Nil, "NAVIGATOR", "Nav")
	if err != nil {
		t.Fatalf("generate navigator token: %v", err)
	}
	return token
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	resp := httpPostJSON(t, server, "/auth/login", body, "")
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

// --- HTTP helpers ---

func httpDo(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, raw
}

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string, out interface{}) {
	t.Helper()
	status, raw := httpDo(t, server, method, path, body, token)
	if status < 200 || status >= 300 {
		t.Fatalf("%s %s: status %d, body: %s", method, path, status, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	httpJSON(t, server, http.MethodPost, path, body, token, &result)
	return result
}

func httpPutJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	httpJSON(t, server, http.MethodPut, path, body, token, &result)
	return result
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	httpJSON(t, server, http.MethodGet, path, nil, token, &result)
	return result
}

func httpGetList(t *testing.T, server *httptest.Server, path string, token string) []interface{} {
	t.Helper()
	var result []interface{}
	httpJSON(t, server, http.MethodGet, path, nil, token, &result)
	return result
}
