package transport

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

// addressBook decodes the unpaginated address listing.
func addressBook(t *testing.T, ts *testServer, userID string) []AddressResponse {
	t.Helper()

	w := ts.do(t, http.MethodGet, "/api/v1/users/"+userID+"/addresses", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list addresses: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data []AddressResponse `json:"data"`
	}
	decodeJSON(t, w, &resp)
	return resp.Data
}

func TestAddressBookFlow(t *testing.T) {
	ts := newTestServer()
	user := ts.createUser(t, "dana@example.com")

	home := ts.createAddress(t, user.ID, true)
	if !home.IsDefault {
		t.Fatal("expected the first address created as default to be default")
	}

	// A second default demotes the first.
	w := ts.do(t, http.MethodPost, "/api/v1/users/"+user.ID+"/addresses", map[string]interface{}{
		"label":       "office",
		"street":      "9 Oak Avenue",
		"city":        "Springfield",
		"state":       "IL",
		"postal_code": "62702",
		"country":     "US",
		"is_default":  true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var office AddressResponse
	decodeJSON(t, w, &office)

	book := addressBook(t, ts, user.ID)
	if len(book) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(book))
	}
	defaults := 0
	for _, a := range book {
		if a.IsDefault {
			defaults++
			if a.ID != office.ID {
				t.Fatalf("expected the office to hold the default, got %s", a.Label)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}

	// Promoting the first back flips the flag pair atomically.
	if w := ts.do(t, http.MethodPost, "/api/v1/users/"+user.ID+"/addresses/"+home.ID+"/default", nil); w.Code != http.StatusNoContent {
		t.Fatalf("set default: expected 204, got %d: %s", w.Code, w.Body.String())
	}
	for _, a := range addressBook(t, ts, user.ID) {
		if a.IsDefault != (a.ID == home.ID) {
			t.Fatalf("default flag wrong on %s after promotion", a.Label)
		}
	}

	// Partial update touches only the named fields.
	w = ts.do(t, http.MethodPatch, "/api/v1/users/"+user.ID+"/addresses/"+office.ID, map[string]interface{}{
		"label": "warehouse",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var patched AddressResponse
	decodeJSON(t, w, &patched)
	if patched.Label != "warehouse" || patched.Street != "9 Oak Avenue" {
		t.Fatalf("patch applied wrong fields: %+v", patched)
	}

	if w := ts.do(t, http.MethodDelete, "/api/v1/users/"+user.ID+"/addresses/"+office.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	if got := len(addressBook(t, ts, user.ID)); got != 1 {
		t.Fatalf("expected 1 address after delete, got %d", got)
	}
}

func TestAddressBookIsScopedToItsOwner(t *testing.T) {
	ts := newTestServer()
	alice := ts.createUser(t, "alice@example.com")
	bob := ts.createUser(t, "bob@example.com")
	addr := ts.createAddress(t, alice.ID, false)

	foreignPath := "/api/v1/users/" + bob.ID + "/addresses/" + addr.ID
	for _, tc := range []struct {
		name   string
		method string
		body   interface{}
	}{
		{"get", http.MethodGet, nil},
		{"patch", http.MethodPatch, map[string]interface{}{"label": "stolen"}},
		{"delete", http.MethodDelete, nil},
		{"set default", http.MethodPost, nil},
	} {
		path := foreignPath
		if tc.name == "set default" {
			path += "/default"
		}
		w := ts.do(t, tc.method, path, tc.body)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s through the wrong owner: expected 404, got %d", tc.name, w.Code)
		}
		if env := decodeError(t, w); env.Error.Code != CodeAddressNotFound {
			t.Fatalf("%s: expected %s, got %s", tc.name, CodeAddressNotFound, env.Error.Code)
		}
	}

	// The owner still sees it untouched.
	var mine AddressResponse
	decodeJSON(t, ts.do(t, http.MethodGet, "/api/v1/users/"+alice.ID+"/addresses/"+addr.ID, nil), &mine)
	if mine.Label != "home" {
		t.Fatalf("foreign access modified the address: %+v", mine)
	}
}

func TestAddressEndpointsForUnknownUser(t *testing.T) {
	ts := newTestServer()
	ghost := uuid.NewString()

	w := ts.do(t, http.MethodPost, "/api/v1/users/"+ghost+"/addresses", map[string]interface{}{
		"label":       "home",
		"street":      "1 Elm Street",
		"city":        "Springfield",
		"state":       "IL",
		"postal_code": "62701",
		"country":     "US",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("create: expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if env := decodeError(t, w); env.Error.Code != CodeUserNotFound {
		t.Fatalf("expected %s, got %s", CodeUserNotFound, env.Error.Code)
	}

	if w := ts.do(t, http.MethodGet, "/api/v1/users/"+ghost+"/addresses", nil); w.Code != http.StatusNotFound {
		t.Fatalf("list: expected 404, got %d", w.Code)
	}
}

func TestAddressValidationKeepsDomainCodes(t *testing.T) {
	ts := newTestServer()
	user := ts.createUser(t, "dana@example.com")

	// The country rule lives on the entity; a present but malformed code
	// passes request decoding and fails there.
	w := ts.do(t, http.MethodPost, "/api/v1/users/"+user.ID+"/addresses", map[string]interface{}{
		"label":       "home",
		"street":      "1 Elm Street",
		"city":        "Springfield",
		"state":       "IL",
		"postal_code": "62701",
		"country":     "usa",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if codes := detailCodes(t, decodeError(t, w)); codes["country"] != "COUNTRY_CODE_INVALID" {
		t.Fatalf("expected COUNTRY_CODE_INVALID, got %v", codes)
	}

	// Missing required fields are caught at the request boundary.
	w = ts.do(t, http.MethodPost, "/api/v1/users/"+user.ID+"/addresses", map[string]interface{}{
		"label": "home",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if env := decodeError(t, w); env.Error.Code != "VALIDATION_FAILED" || len(env.Error.Details) == 0 {
		t.Fatalf("expected VALIDATION_FAILED with details, got %+v", env.Error)
	}
}
