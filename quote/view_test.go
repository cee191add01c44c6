package quote_test

import (
	"testing"
	"time"

	"github.com/xraph/medquote/quote"
)

func TestNewViewVisibility(t *testing.T) {
	created := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		responded     int
		visible       int
		wantShown     int
		wantRemaining int
	}{
		{"fewer than visible", 3, 5, 3, 0},
		{"exactly visible", 5, 5, 5, 0},
		{"more than visible", 12, 5, 5, 7},
		{"after show more", 12, 10, 10, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(created, tt.responded, 2)
			r.VisibleCount = tt.visible

			v := quote.NewView(r, created.Add(time.Minute))
			if len(v.Quotes) != tt.wantShown {
				t.Errorf("shown = %d, want %d", len(v.Quotes), tt.wantShown)
			}
			if v.Remaining != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", v.Remaining, tt.wantRemaining)
			}
		})
	}
}

func TestNewViewMasking(t *testing.T) {
	created := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	r := newRequest(created, 3, 0)

	v := quote.NewView(r, created)
	for _, q := range v.Quotes {
		if q.ProviderName != "" || !q.ProviderID.IsNil() {
			t.Fatalf("quote %d leaks provider identity before selection", q.Rank)
		}
		if q.MaskedName == "" {
			t.Fatalf("quote %d has no masked name", q.Rank)
		}
	}

	r.State = quote.StateSelected
	r.SelectedQuoteID = r.Quotes[1].ID
	v = quote.NewView(r, created)
	for i, q := range v.Quotes {
		revealed := q.ProviderName != ""
		if revealed != (i == 1) {
			t.Errorf("quote %d revealed = %v", i, revealed)
		}
	}

	if r.Quotes[0].ProviderName == "" {
		t.Error("NewView mutated the stored request")
	}
}

func TestNewViewCompassionate(t *testing.T) {
	created := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	r := newRequest(created, 0, 4)

	if quote.NewView(r, created.Add(4*time.Minute)).Compassionate {
		t.Error("compassionate state shown before five minutes")
	}
	if !quote.NewView(r, created.Add(5*time.Minute)).Compassionate {
		t.Error("compassionate state missing after five minutes")
	}

	r = newRequest(created, 1, 0)
	if quote.NewView(r, created.Add(time.Hour)).Compassionate {
		t.Error("compassionate state shown with a responder")
	}
}

func TestNewViewTrainingLabel(t *testing.T) {
	r := newRequest(time.Now(), 1, 0)
	r.Training = true
	if got := quote.NewView(r, time.Now()).Label; got != quote.TrainingLabel {
		t.Errorf("label = %q", got)
	}
}
