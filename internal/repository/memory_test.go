package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// The memory store must satisfy the exact same contracts as postgres.
var (
	_ UserRepository    = (*memoryUsers)(nil)
	_ AddressRepository = (*memoryAddresses)(nil)
	_ ProductRepository = (*memoryProducts)(nil)
	_ OrderRepository   = (*memoryOrders)(nil)
)

func seedMemoryUsers(t *testing.T, store *MemoryStore, n int) []*domain.User {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	users := make([]*domain.User, 0, n)
	for i := 0; i < n; i++ {
		user := testUser(fmt.Sprintf("user%03d@mem.example.com", i))
		user.CreatedAt = base.Add(time.Duration(i) * time.Second)
		user.UpdatedAt = user.CreatedAt
		if err := store.Users().Create(ctx, user); err != nil {
			t.Fatalf("failed to seed user %d: %v", i, err)
		}
		users = append(users, user)
	}
	return users
}

func TestPageNormalizeClampsBounds(t *testing.T) {
	cases := []struct {
		name string
		in   Page
		want Page
	}{
		{"zero value gets defaults", Page{}, Page{Number: 1, Size: DefaultPageSize}},
		{"negative page becomes first", Page{Number: -3, Size: 10}, Page{Number: 1, Size: 10}},
		{"oversized page is capped", Page{Number: 2, Size: 1000}, Page{Number: 2, Size: MaxPageSize}},
		{"valid window is untouched", Page{Number: 4, Size: 25}, Page{Number: 4, Size: 25}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(); got != tc.want {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestPaginationWindowOf25By10(t *testing.T) {
	store := NewMemoryStore()
	seedMemoryUsers(t, store, 25)
	ctx := context.Background()

	page3, total, err := store.Users().List(ctx, Page{Number: 3, Size: 10}, UserFilter{})
	if err != nil {
		t.Fatalf("failed to list page 3: %v", err)
	}
	if total != 25 {
		t.Errorf("expected total 25, got %d", total)
	}
	if len(page3) != 5 {
		t.Errorf("expected 5 users on page 3, got %d", len(page3))
	}
	if pages := TotalPages(total, 10); pages != 3 {
		t.Errorf("expected 3 total pages, got %d", pages)
	}

	page4, _, err := store.Users().List(ctx, Page{Number: 4, Size: 10}, UserFilter{})
	if err != nil {
		t.Fatalf("a page past the end must not error: %v", err)
	}
	if len(page4) != 0 {
		t.Errorf("expected empty page past the end, got %d users", len(page4))
	}
}

func TestProperty_PaginationNeverLosesOrDuplicates(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("walking all pages yields each user exactly once", prop.ForAll(
		func(total int, size int) bool {
			store := NewMemoryStore()
			seedMemoryUsers(t, store, total)
			ctx := context.Background()

			seen := map[uuid.UUID]int{}
			pages := TotalPages(total, size)
			for number := 1; number <= pages; number++ {
				users, reportedTotal, err := store.Users().List(ctx, Page{Number: number, Size: size}, UserFilter{})
				if err != nil {
					t.Logf("FAIL: list page %d: %v", number, err)
					return false
				}
				if reportedTotal != total {
					t.Logf("FAIL: reported total %d, want %d", reportedTotal, total)
					return false
				}
				if len(users) > size {
					t.Logf("FAIL: page %d holds %d users, page size is %d", number, len(users), size)
					return false
				}
				for _, u := range users {
					seen[u.ID]++
				}
			}

			if len(seen) != total {
				t.Logf("FAIL: saw %d distinct users, want %d", len(seen), total)
				return false
			}
			for id, n := range seen {
				if n != 1 {
					t.Logf("FAIL: user %s appeared %d times", id, n)
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 55),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestMemoryEmailUniquenessSpansSoftDeleted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user := testUser("keeper@mem.example.com")
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	dupe := testUser("Keeper@Mem.Example.com")
	dupe.Email = "Keeper@Mem.Example.com"
	if err := store.Users().Create(ctx, dupe); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if err := store.Users().SoftDelete(ctx, user.ID); err != nil {
		t.Fatalf("failed to soft delete: %v", err)
	}
	if err := store.Users().Create(ctx, testUser("keeper@mem.example.com")); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken after soft delete, got %v", err)
	}
	if _, err := store.Users().FindByEmail(ctx, "keeper@mem.example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("soft-deleted user should be invisible, got %v", err)
	}
}

func TestMemoryUserDeleteWalksOwnershipEdges(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user := testUser("edges@mem.example.com")
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	address := testAddress(user.ID, "home")
	if err := store.Addresses().Create(ctx, address); err != nil {
		t.Fatalf("failed to create address: %v", err)
	}
	product := testProduct("mem-widget")
	if err := store.Products().Create(ctx, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	order := testOrder(user, address, []*domain.Product{product})
	if err := store.Orders().Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	// Orders hold the user in place.
	if err := store.Users().Delete(ctx, user.ID); !errors.Is(err, ErrForeignKeyRestricted) {
		t.Fatalf("expected ErrForeignKeyRestricted, got %v", err)
	}
	// Items hold the product in place.
	if err := store.Products().Delete(ctx, product.ID); !errors.Is(err, ErrForeignKeyRestricted) {
		t.Fatalf("expected ErrForeignKeyRestricted for product, got %v", err)
	}

	// Deleting the address clears the shipping reference but keeps the order.
	if err := store.Addresses().Delete(ctx, address.ID); err != nil {
		t.Fatalf("failed to delete address: %v", err)
	}
	fetched, err := store.Orders().FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("order should survive address deletion: %v", err)
	}
	if fetched.ShippingAddressID != nil {
		t.Error("shipping reference was not cleared")
	}

	// Deleting the order releases user and product, items cascade.
	if err := store.Orders().Delete(ctx, order.ID); err != nil {
		t.Fatalf("failed to delete order: %v", err)
	}
	if err := store.Products().Delete(ctx, product.ID); err != nil {
		t.Fatalf("failed to delete product after order removal: %v", err)
	}
	if err := store.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("failed to delete user after order removal: %v", err)
	}
}

func TestMemoryDefaultAddressPromotion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user := testUser("defaults@mem.example.com")
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	home := testAddress(user.ID, "home")
	home.IsDefault = true
	office := testAddress(user.ID, "office")
	office.IsDefault = true

	for _, a := range []*domain.Address{home, office} {
		if err := store.Addresses().Create(ctx, a); err != nil {
			t.Fatalf("failed to create address %q: %v", a.Label, err)
		}
	}

	listed, err := store.Addresses().ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("failed to list addresses: %v", err)
	}
	defaults := 0
	for _, a := range listed {
		if a.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}
	if !listed[0].IsDefault {
		t.Error("default address should sort first")
	}

	if err := store.Addresses().SetDefault(ctx, user.ID, home.ID); err != nil {
		t.Fatalf("failed to set default: %v", err)
	}
	refetched, err := store.Addresses().FindByID(ctx, office.ID)
	if err != nil {
		t.Fatalf("failed to re-fetch office: %v", err)
	}
	if refetched.IsDefault {
		t.Error("previous default was not demoted")
	}
}

func TestMemoryOrderStatusTransitions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user := testUser("transitions@mem.example.com")
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	product := testProduct("mem-transitions")
	if err := store.Products().Create(ctx, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	order := testOrder(user, nil, []*domain.Product{product})
	if err := store.Orders().Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	if _, err := store.Orders().UpdateStatus(ctx, order.ID, domain.StatusShipped); err == nil {
		t.Fatal("expected skipping transition to fail")
	}

	updated, err := store.Orders().UpdateStatus(ctx, order.ID, domain.StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if updated.Status != domain.StatusConfirmed {
		t.Errorf("expected confirmed, got %s", updated.Status)
	}
	if len(updated.Items) != 1 {
		t.Errorf("transition result should carry items, got %d", len(updated.Items))
	}

	if _, err := store.Orders().UpdateStatus(ctx, order.ID, domain.StatusCancelled); err != nil {
		t.Fatalf("cancel from confirmed failed: %v", err)
	}
	if _, err := store.Orders().UpdateStatus(ctx, order.ID, domain.StatusConfirmed); err == nil {
		t.Fatal("expected transitions out of cancelled to fail")
	}
}

func TestMemoryProductSlugConflict(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Products().Create(ctx, testProduct("same-slug")); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	if err := store.Products().Create(ctx, testProduct("same-slug")); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}

	found, err := store.Products().FindBySlug(ctx, "same-slug")
	if err != nil {
		t.Fatalf("failed to find by slug: %v", err)
	}
	if found.Slug != "same-slug" {
		t.Errorf("unexpected product: %q", found.Slug)
	}
}

func TestMemoryRejectsInvalidEntitiesBeforeWrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user := testUser("invalid@mem.example.com")
	user.Email = "broken"

	err := store.Users().Create(ctx, user)
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	if _, _, err := store.Users().List(ctx, Page{}, UserFilter{}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if _, err := store.Users().FindByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("rejected user must not be stored, got %v", err)
	}
}
