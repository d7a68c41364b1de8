package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFundingRateScale(t *testing.T) {
	cases := []struct {
		interval, periods, want float64
	}{
		{1, 3, 8},
		{8, 3, 1},
		{1, 24, 1},
		{0, 0, 8},
	}
	for _, tc := range cases {
		if got := FundingRateScale(tc.interval, tc.periods).InexactFloat64(); got != tc.want {
			t.Errorf("FundingRateScale(%v, %v): expected %v, got %v", tc.interval, tc.periods, tc.want, got)
		}
	}
}

func TestNextFundingAfter(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		at       time.Time
		interval float64
		want     time.Time
	}{
		{"mid hour", day.Add(90 * time.Minute), 1, day.Add(2 * time.Hour)},
		{"on the hour is strictly after", day.Add(3 * time.Hour), 1, day.Add(4 * time.Hour)},
		{"eight hour", day.Add(9 * time.Hour), 8, day.Add(16 * time.Hour)},
		{"rolls to next day", day.Add(23*time.Hour + 30*time.Minute), 8, day.Add(24 * time.Hour)},
		{"non-utc input", day.Add(90 * time.Minute).In(time.FixedZone("X", 5*3600)), 1, day.Add(2 * time.Hour)},
		{"zero interval is hourly", day.Add(10 * time.Minute), 0, day.Add(time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextFundingAfter(tc.at, tc.interval); !got.Equal(tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNormalizedInstrument_JSONRate(t *testing.T) {
	funding, err := NewFundingInstrument(VenueDydx, "BTC-USD", "BTC-USD", 0, InstrumentMeta{})
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(funding)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(string(data), `"rate":0`) {
		t.Errorf("expected zero rate to be written, got %s", data)
	}
	if strings.Contains(string(data), "next_funding") {
		t.Errorf("expected unset next funding to be omitted, got %s", data)
	}

	var back NormalizedInstrument
	if err := json.Unmarshal([]byte(`{"venue":"dydx","model":"funding","key_text":"ETH","rate":0.0002}`), &back); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if back.Rate != 0.0002 || back.KeyText != "ETH" {
		t.Errorf("expected ETH at 0.0002, got %s at %v", back.KeyText, back.Rate)
	}

	binary, err := NewBinaryInstrument(VenueKalshi, "K1", "Will it rain?", 0.4, 0.6, InstrumentMeta{})
	if err != nil {
		t.Fatal(err)
	}
	data, _ = json.Marshal(binary)
	if strings.Contains(string(data), `"rate"`) {
		t.Errorf("expected binary instrument without rate, got %s", data)
	}
}
