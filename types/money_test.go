package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func TestMoneyDisplay(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		major   string
		display string
	}{
		{"cents", USD(4900), "49.00", "$49.00"},
		{"dollars", Dollars(128000), "128000.00", "$128,000.00"},
		{"odd cents", USD(123456789), "1234567.89", "$1,234,567.89"},
		{"negative", USD(-150050), "-1500.50", "-$1,500.50"},
		{"zero", Zero("USD"), "0.00", "$0.00"},
		{"small", USD(7), "0.07", "$0.07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.major {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.major)
			}
			if got := tt.money.String(); got != tt.display {
				t.Errorf("String: got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestApplyRate(t *testing.T) {
	tests := []struct {
		name   string
		amount Money
		factor string
		want   Money
	}{
		{"four percent", Dollars(10000), "0.04", Dollars(400)},
		{"one percent", Dollars(10000), "0.01", Dollars(100)},
		{"critical surcharge", Dollars(105000), "1.2", Dollars(126000)},
		{"subscriber discount", Dollars(126000), "0.9", Dollars(113400)},
		{"below half", USD(12), "0.04", USD(0)},         // 0.48 -> 0
		{"half exact", USD(1250), "0.04", USD(50)},      // 50.00
		{"half away", USD(1238), "0.04", USD(50)},       // 49.52 -> 50
		{"midpoint", USD(2), "0.25", USD(1)},            // 0.5 -> 1
		{"negative midpoint", USD(-2), "0.25", USD(-1)}, // -0.5 -> -1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.amount.ApplyRate(decimal.RequireFromString(tt.factor))
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyRateWithinHalfCent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(0, 1_000_000_000).Draw(t, "cents")
		bps := rapid.Int64Range(0, 10_000).Draw(t, "bps")

		got := USD(cents).ApplyRate(decimal.New(bps, -4))
		// |got*10000 - cents*bps| <= 5000 (half a cent, scaled).
		diff := got.Amount*10_000 - cents*bps
		if diff < -5000 || diff > 5000 {
			t.Fatalf("rounding off by more than half a cent: cents=%d bps=%d got=%d", cents, bps, got.Amount)
		}
	})
}

func TestMoneyArithmetic(t *testing.T) {
	if got := USD(100).Add(USD(250)); !got.Equal(USD(350)) {
		t.Errorf("Add: got %v", got)
	}
	if got := USD(500).Subtract(USD(200)); !got.Equal(USD(300)) {
		t.Errorf("Subtract: got %v", got)
	}
	if got := Dollars(3).Multiply(4); !got.Equal(USD(1200)) {
		t.Errorf("Multiply: got %v", got)
	}
	if got := Sum(USD(1), USD(2), USD(3)); !got.Equal(USD(6)) {
		t.Errorf("Sum: got %v", got)
	}
	if got := Sum(); !got.Equal(Zero("usd")) {
		t.Errorf("empty Sum: got %v", got)
	}
}

func TestCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on currency mismatch")
		}
	}()
	_ = USD(1).Add(Money{Amount: 1, Currency: "eur"})
}

func TestNormalized(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "usd"},
		{"USD", "usd"},
		{" Usd ", "usd"},
		{"EUR", "eur"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Money{Amount: 42, Currency: tt.in}.Normalized()
			if got.Currency != tt.want || got.Amount != 42 {
				t.Errorf("Normalized(%q) = %+v, want %s", tt.in, got, tt.want)
			}
		})
	}

	// Normalized values mix with constructor output.
	_ = USD(1).Add(Money{Amount: 1, Currency: "USD"}.Normalized())
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(Dollars(49))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["display"] != "$49.00" {
		t.Errorf("display: got %v", raw["display"])
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(Dollars(49)) {
		t.Errorf("decoded %v", back)
	}
}
