package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// testServer wires every handler over the in-memory backend with the
// production route table, so tests exercise routing, decoding, and error
// mapping exactly as a client would see them.
type testServer struct {
	router chi.Router
	store  *repository.MemoryStore
}

func newTestServer() *testServer {
	store := repository.NewMemoryStore()
	logger := zap.NewNop()

	userHandler := NewUserHandler(service.NewUserService(store.Users(), service.NewBcryptHasher()), logger)
	addressHandler := NewAddressHandler(service.NewAddressService(store.Addresses(), store.Users()), logger)
	productHandler := NewProductHandler(service.NewProductService(store.Products()), logger)
	orderHandler := NewOrderHandler(
		service.NewOrderService(store.Orders(), store.Products(), store.Addresses(), store.Users()),
		logger,
	)

	router := chi.NewRouter()
	userHandler.RegisterRoutes(router, addressHandler.Routes)
	productHandler.RegisterRoutes(router)
	orderHandler.RegisterRoutes(router)

	return &testServer{router: router, store: store}
}

// do sends one JSON request through the router. A nil body sends no payload.
func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// doRaw sends a request with a verbatim body, for malformed payloads.
func (ts *testServer) doRaw(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// errorEnvelope mirrors the wire shape of error responses.
type errorEnvelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Field   string          `json:"field"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()

	var env errorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, w.Body.String())
	}
	if env.Error.Code == "" {
		t.Fatalf("error envelope missing code: %s", w.Body.String())
	}
	return env
}

// detailCodes extracts field->code pairs from an envelope whose details
// carry entity constraint violations.
func detailCodes(t *testing.T, env errorEnvelope) map[string]string {
	t.Helper()

	var violations []struct {
		Field string `json:"field"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(env.Error.Details, &violations); err != nil {
		t.Fatalf("decode violation details: %v (details %s)", err, string(env.Error.Details))
	}

	codes := make(map[string]string, len(violations))
	for _, v := range violations {
		codes[v.Field] = v.Code
	}
	return codes
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
}

func (ts *testServer) createUser(t *testing.T, email string) UserResponse {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"email":    email,
		"name":     "Test Shopper",
		"password": "sturdy-passphrase",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed user %s: got %d: %s", email, w.Code, w.Body.String())
	}
	var resp UserResponse
	decodeJSON(t, w, &resp)
	return resp
}

func (ts *testServer) createProduct(t *testing.T, name, slug string, price float64) ProductResponse {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":           name,
		"slug":           slug,
		"price":          price,
		"stock_quantity": 25,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed product %s: got %d: %s", slug, w.Code, w.Body.String())
	}
	var resp ProductResponse
	decodeJSON(t, w, &resp)
	return resp
}

func (ts *testServer) createAddress(t *testing.T, userID string, isDefault bool) AddressResponse {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/v1/users/"+userID+"/addresses", map[string]interface{}{
		"label":       "home",
		"street":      "1 Elm Street",
		"city":        "Springfield",
		"state":       "IL",
		"postal_code": "62701",
		"country":     "US",
		"is_default":  isDefault,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed address for %s: got %d: %s", userID, w.Code, w.Body.String())
	}
	var resp AddressResponse
	decodeJSON(t, w, &resp)
	return resp
}

func (ts *testServer) placeOrder(t *testing.T, userID string, items ...map[string]interface{}) OrderResponse {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"user_id":  userID,
		"tax":      1.50,
		"shipping": 4.00,
		"items":    items,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed order for %s: got %d: %s", userID, w.Code, w.Body.String())
	}
	var resp OrderResponse
	decodeJSON(t, w, &resp)
	return resp
}

// seedProducts writes n catalog entries straight into the store, bypassing
// HTTP, with staggered creation times so listing order is deterministic.
func (ts *testServer) seedProducts(t *testing.T, n int) {
	t.Helper()

	base := time.Now().UTC()
	for i := 0; i < n; i++ {
		created := base.Add(-time.Duration(i) * time.Minute)
		err := ts.store.Products().Create(context.Background(), &domain.Product{
			ID:            uuid.New(),
			Name:          fmt.Sprintf("Item %03d", i),
			Slug:          fmt.Sprintf("item-%03d", i),
			Price:         float64(i) + 0.99,
			StockQuantity: i,
			IsActive:      true,
			CreatedAt:     created,
			UpdatedAt:     created,
		})
		if err != nil {
			t.Fatalf("seed product %d: %v", i, err)
		}
	}
}
