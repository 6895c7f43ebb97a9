package domain

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestUserValidateCollectsEveryViolation(t *testing.T) {
	user := &User{
		ID:    uuid.New(),
		Email: "not-an-email",
		Name:  "",
	}

	violations := user.Validate()

	if len(violations) != 3 {
		t.Fatalf("expected 3 violations, got %d: %v", len(violations), violations)
	}

	codes := map[string]string{}
	for _, v := range violations {
		codes[v.Field] = v.Code
	}
	if codes["email"] != CodeEmailInvalid {
		t.Errorf("expected email tagged %s, got %s", CodeEmailInvalid, codes["email"])
	}
	if codes["name"] != CodeNameLength {
		t.Errorf("expected name tagged %s, got %s", CodeNameLength, codes["name"])
	}
	if codes["password_hash"] != CodeFieldRequired {
		t.Errorf("expected password_hash tagged %s, got %s", CodeFieldRequired, codes["password_hash"])
	}
}

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		codes   []string
	}{
		{
			name:    "valid",
			product: Product{Name: "Margherita", Slug: "margherita", Price: 9.50, StockQuantity: 3},
			codes:   nil,
		},
		{
			name:    "negative price and stock",
			product: Product{Name: "Margherita", Slug: "margherita", Price: -1, StockQuantity: -2},
			codes:   []string{CodePriceNegative, CodeStockNegative},
		},
		{
			name:    "bad slug",
			product: Product{Name: "Margherita", Slug: "Margherita Pizza", Price: 9.50},
			codes:   []string{CodeSlugInvalid},
		},
		{
			name:    "trailing hyphen slug",
			product: Product{Name: "Margherita", Slug: "margherita-", Price: 9.50},
			codes:   []string{CodeSlugInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := tt.product.Validate()
			if len(violations) != len(tt.codes) {
				t.Fatalf("expected %d violations, got %d: %v", len(tt.codes), len(violations), violations)
			}
			for i, code := range tt.codes {
				if violations[i].Code != code {
					t.Errorf("violation %d: expected %s, got %s", i, code, violations[i].Code)
				}
			}
		})
	}
}

func TestAddressValidateCountryCode(t *testing.T) {
	address := Address{
		UserID:     uuid.New(),
		Label:      "home",
		Street:     "12 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62704",
		Country:    "us",
	}

	violations := address.Validate()
	if len(violations) != 1 || violations[0].Code != CodeCountryInvalid {
		t.Fatalf("expected a single %s violation, got %v", CodeCountryInvalid, violations)
	}

	address.Country = "US"
	if violations := address.Validate(); len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestValidateDefaultAddresses(t *testing.T) {
	userID := uuid.New()
	addresses := []Address{
		{UserID: userID, IsDefault: true},
		{UserID: userID, IsDefault: false},
	}

	if violations := ValidateDefaultAddresses(addresses); len(violations) != 0 {
		t.Fatalf("one default should be fine, got %v", violations)
	}

	addresses[1].IsDefault = true
	violations := ValidateDefaultAddresses(addresses)
	if len(violations) != 1 || violations[0].Code != CodeDefaultAddressConflict {
		t.Fatalf("expected a single %s violation, got %v", CodeDefaultAddressConflict, violations)
	}
}

func TestProperty_ValidateIsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("validating the same unchanged user twice yields the same result", prop.ForAll(
		func(email, name, hash string) bool {
			user := &User{ID: uuid.New(), Email: email, Name: name, PasswordHash: hash}

			first := user.Validate()
			second := user.Validate()

			if !reflect.DeepEqual(first, second) {
				t.Logf("FAIL: first %v, second %v", first, second)
				return false
			}
			return true
		},
		gen.OneGenOf(gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`), gen.AlphaString()),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("validating the same unchanged order twice yields the same result", prop.ForAll(
		func(quantity int, unitPrice, discount float64) bool {
			order := &Order{
				UserID: uuid.New(),
				Status: StatusPending,
				Items: []OrderItem{
					{ProductID: uuid.New(), Quantity: quantity, UnitPrice: unitPrice, Discount: discount},
				},
			}
			order.Recalculate()

			if !reflect.DeepEqual(order.Validate(), order.Validate()) {
				t.Logf("FAIL: order validation not stable for qty=%d price=%f discount=%f", quantity, unitPrice, discount)
				return false
			}
			return true
		},
		gen.IntRange(-5, 50),
		gen.Float64Range(-10, 999.99),
		gen.Float64Range(-10, 99.99),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  A@Example.com "); got != "a@example.com" {
		t.Fatalf("expected a@example.com, got %q", got)
	}
}
