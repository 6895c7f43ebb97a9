package transport

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCreateProductDefaultsToActive(t *testing.T) {
	ts := newTestServer()

	lamp := ts.createProduct(t, "Desk Lamp", "desk-lamp", 34.90)
	if !lamp.IsActive {
		t.Fatal("expected new catalog entries to sell by default")
	}

	w := ts.do(t, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":      "Retired Chair",
		"slug":      "retired-chair",
		"price":     10.0,
		"is_active": false,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var chair ProductResponse
	decodeJSON(t, w, &chair)
	if chair.IsActive {
		t.Fatal("expected the explicit is_active=false to be honored")
	}
}

func TestCreateProductReportsEveryViolation(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":           "Desk Lamp",
		"slug":           "Bad Slug!",
		"price":          -1.0,
		"stock_quantity": -5,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	codes := detailCodes(t, decodeError(t, w))
	for field, want := range map[string]string{
		"slug":           "SLUG_INVALID",
		"price":          "PRICE_NEGATIVE",
		"stock_quantity": "STOCK_NEGATIVE",
	} {
		if codes[field] != want {
			t.Fatalf("expected %s on %s, got %v", want, field, codes)
		}
	}
}

func TestProductSlugConflicts(t *testing.T) {
	ts := newTestServer()
	ts.createProduct(t, "Desk Lamp", "desk-lamp", 34.90)
	chair := ts.createProduct(t, "Side Chair", "side-chair", 89.00)

	w := ts.do(t, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":  "Other Lamp",
		"slug":  "desk-lamp",
		"price": 12.0,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("create: expected 409, got %d: %s", w.Code, w.Body.String())
	}
	env := decodeError(t, w)
	if env.Error.Code != CodeSlugExists || env.Error.Field != "slug" {
		t.Fatalf("expected %s on field slug, got %+v", CodeSlugExists, env.Error)
	}

	// Renaming onto an existing slug conflicts the same way.
	w = ts.do(t, http.MethodPatch, "/api/v1/products/"+chair.ID, map[string]interface{}{
		"slug": "desk-lamp",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("patch: expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if env := decodeError(t, w); env.Error.Code != CodeSlugExists {
		t.Fatalf("expected %s, got %s", CodeSlugExists, env.Error.Code)
	}
}

func TestProductLookupByIDAndSlug(t *testing.T) {
	ts := newTestServer()
	lamp := ts.createProduct(t, "Desk Lamp", "desk-lamp", 34.90)

	var byID ProductResponse
	decodeJSON(t, ts.do(t, http.MethodGet, "/api/v1/products/"+lamp.ID, nil), &byID)
	if byID.Slug != "desk-lamp" {
		t.Fatalf("lookup by id returned %q", byID.Slug)
	}

	var bySlug ProductResponse
	decodeJSON(t, ts.do(t, http.MethodGet, "/api/v1/products/slug/desk-lamp", nil), &bySlug)
	if bySlug.ID != lamp.ID {
		t.Fatalf("lookup by slug returned %q", bySlug.ID)
	}

	w := ts.do(t, http.MethodGet, "/api/v1/products/slug/no-such-item", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown slug, got %d", w.Code)
	}
	if env := decodeError(t, w); env.Error.Code != CodeProductNotFound {
		t.Fatalf("expected %s, got %s", CodeProductNotFound, env.Error.Code)
	}
}

func TestPatchProductRevalidates(t *testing.T) {
	ts := newTestServer()
	lamp := ts.createProduct(t, "Desk Lamp", "desk-lamp", 34.90)

	w := ts.do(t, http.MethodPatch, "/api/v1/products/"+lamp.ID, map[string]interface{}{
		"price": -3.0,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if codes := detailCodes(t, decodeError(t, w)); codes["price"] != "PRICE_NEGATIVE" {
		t.Fatalf("expected PRICE_NEGATIVE, got %v", codes)
	}

	// A rejected patch leaves the entry untouched.
	var current ProductResponse
	decodeJSON(t, ts.do(t, http.MethodGet, "/api/v1/products/"+lamp.ID, nil), &current)
	if current.Price != 34.90 {
		t.Fatalf("rejected patch still changed the price to %v", current.Price)
	}
}

func TestDeleteProductRestrictedWhileReferenced(t *testing.T) {
	ts := newTestServer()
	user := ts.createUser(t, "dana@example.com")
	lamp := ts.createProduct(t, "Desk Lamp", "desk-lamp", 34.90)
	order := ts.placeOrder(t, user.ID, map[string]interface{}{"product_id": lamp.ID, "quantity": 2})

	w := ts.do(t, http.MethodDelete, "/api/v1/products/"+lamp.ID, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while referenced, got %d: %s", w.Code, w.Body.String())
	}
	if env := decodeError(t, w); env.Error.Code != CodeProductInUse {
		t.Fatalf("expected %s, got %s", CodeProductInUse, env.Error.Code)
	}

	// Deleting the order cascades its items and frees the product.
	if w := ts.do(t, http.MethodDelete, "/api/v1/orders/"+order.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("order delete: expected 204, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodDelete, "/api/v1/products/"+lamp.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 once unreferenced, got %d: %s", w.Code, w.Body.String())
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/products/"+lamp.ID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestListProductsFiltersByActivity(t *testing.T) {
	ts := newTestServer()
	ts.createProduct(t, "Desk Lamp", "desk-lamp", 34.90)
	retired := ts.createProduct(t, "Retired Chair", "retired-chair", 10.0)
	if w := ts.do(t, http.MethodPatch, "/api/v1/products/"+retired.ID, map[string]interface{}{"is_active": false}); w.Code != http.StatusOK {
		t.Fatalf("retire: expected 200, got %d", w.Code)
	}

	var inactive ListResponse
	decodeJSON(t, ts.do(t, http.MethodGet, "/api/v1/products?is_active=false", nil), &inactive)
	if inactive.Meta.TotalCount != 1 {
		t.Fatalf("expected 1 inactive entry, got %+v", inactive.Meta)
	}

	var all ListResponse
	decodeJSON(t, ts.do(t, http.MethodGet, "/api/v1/products", nil), &all)
	if all.Meta.TotalCount != 2 {
		t.Fatalf("expected the unfiltered listing to count both, got %+v", all.Meta)
	}

	if w := ts.do(t, http.MethodGet, "/api/v1/products?is_active=sometimes", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on a non-boolean filter, got %d", w.Code)
	}
}

func TestProperty_ProductListMetaMatchesCatalog(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("pagination meta is consistent with the catalog size", prop.ForAll(
		func(total, perPage, page int) bool {
			ts := newTestServer()
			ts.seedProducts(t, total)

			path := fmt.Sprintf("/api/v1/products?page=%d&per_page=%d", page, perPage)
			w := ts.do(t, http.MethodGet, path, nil)
			if w.Code != http.StatusOK {
				t.Logf("FAIL: Expected 200 status code, got %d: %s", w.Code, w.Body.String())
				return false
			}

			var resp struct {
				Data []ProductResponse `json:"data"`
				Meta ListMeta          `json:"meta"`
			}
			decodeJSON(t, w, &resp)

			if resp.Meta.TotalCount != total {
				t.Logf("FAIL: Expected total_count %d, got %d", total, resp.Meta.TotalCount)
				return false
			}
			if resp.Meta.Page != page || resp.Meta.PerPage != perPage {
				t.Logf("FAIL: Window echo mismatch: %+v", resp.Meta)
				return false
			}

			wantPages := 0
			if total > 0 {
				wantPages = (total + perPage - 1) / perPage
			}
			if resp.Meta.TotalPages != wantPages {
				t.Logf("FAIL: Expected total_pages %d, got %d", wantPages, resp.Meta.TotalPages)
				return false
			}

			want := 0
			if start := (page - 1) * perPage; start < total {
				want = total - start
				if want > perPage {
					want = perPage
				}
			}
			if len(resp.Data) != want {
				t.Logf("FAIL: Expected %d items on page %d, got %d", want, page, len(resp.Data))
				return false
			}

			return true
		},
		gen.IntRange(0, 12),
		gen.IntRange(1, 5),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
