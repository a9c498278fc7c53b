package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/auth"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/handler"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const testSecret = "test-secret"

// --- Mock store ---

type mockAuthStore struct {
	userByEmail map[string]database.User
	userByID    map[uuid.UUID]database.User
	err         error
}

func newMockStore() *mockAuthStore {
	return &mockAuthStore{
		userByEmail: make(map[string]database.User),
		userByID:    make(map[uuid.UUID]database.User),
	}
}

func (m *mockAuthStore) addUser(u database.User) {
	m.userByEmail[u.Email] = u
	m.userByID[u.ID] = u
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	if m.err != nil {
		return database.User{}, m.err
	}
	u, ok := m.userByEmail[email]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.userByID[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return h
}

func makeVendorUser(t *testing.T) database.User {
	t.Helper()
	return database.User{
		ID:             uuid.New(),
		Email:          "kitchen@test.com",
		HashedPassword: hashPassword(t, "correct-password"),
		FullName:       "Fresh Kitchen",
		Role:           "VENDOR",
		VendorID:       pgtype.UUID{Bytes: uuid.New(), Valid: true},
		IsActive:       true,
	}
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, "POST", path, body)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func doRaw(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func newAuthRouter(store handler.AuthStore) chi.Router {
	h := handler.NewAuthHandler(store, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	store := newMockStore()
	user := makeVendorUser(t)
	store.addUser(user)

	rr := postJSON(t, newAuthRouter(store), "/auth/login", map[string]string{
		"email":    "kitchen@test.com",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	token, _ := resp["access_token"].(string)
	if token == "" {
		t.Fatal("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}

	claims, err := auth.ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.VendorID != uuid.UUID(user.VendorID.Bytes) {
		t.Errorf("vendor claim: got %v, want %v", claims.VendorID, uuid.UUID(user.VendorID.Bytes))
	}
	if claims.Name != "Fresh Kitchen" {
		t.Errorf("name claim: got %q", claims.Name)
	}

	userResp, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatal("expected user object in response")
	}
	if userResp["role"] != "VENDOR" {
		t.Errorf("user role: got %v, want VENDOR", userResp["role"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockStore()
	store.addUser(makeVendorUser(t))

	rr := postJSON(t, newAuthRouter(store), "/auth/login", map[string]string{
		"email":    "kitchen@test.com",
		"password": "wrong-password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	rr := postJSON(t, newAuthRouter(newMockStore()), "/auth/login", map[string]string{
		"email":    "nobody@test.com",
		"password": "password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	rr := postJSON(t, newAuthRouter(newMockStore()), "/auth/login", map[string]string{
		"email": "kitchen@test.com",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLogin_StoreError(t *testing.T) {
	store := newMockStore()
	store.err = errors.New("connection reset")

	rr := postJSON(t, newAuthRouter(store), "/auth/login", map[string]string{
		"email":    "kitchen@test.com",
		"password": "password",
	})

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	store := newMockStore()
	user := makeVendorUser(t)
	store.addUser(user)

	refreshToken, err := auth.GenerateRefreshToken(testSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, newAuthRouter(store), "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
}

func TestRefresh_UnknownUser(t *testing.T) {
	refreshToken, _ := auth.GenerateRefreshToken(testSecret, uuid.New())

	rr := postJSON(t, newAuthRouter(newMockStore()), "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	rr := postJSON(t, newAuthRouter(newMockStore()), "/auth/refresh", map[string]string{
		"refresh_token": "garbage",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
