package polymarket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const eventsBody = `[
  {"id":"e1","title":"Bitcoin","slug":"btc-100k","active":true,"closed":false,"markets":[
    {"id":"1","conditionId":"0xabc","question":"Will BTC hit $100k?","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.62\",\"0.38\"]","volume":"1500.5"},
    {"id":"2","conditionId":"0xabc","question":"duplicate","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.1\",\"0.9\"]"},
    {"id":"3","conditionId":"0xdef","question":"Multi","outcomes":"[\"Trump\",\"Harris\"]","outcomePrices":"[\"0.5\",\"0.5\"]"},
    {"id":"4","conditionId":"0xclosed","question":"Closed","closed":true,"outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.5\",\"0.5\"]"}
  ]}
]`

func TestFetcher_Events(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("expected /events, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("closed") != "false" || r.URL.Query().Get("active") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		io.WriteString(w, eventsBody)
	}))
	defer srv.Close()

	res, err := NewFetcher(NewGammaClient(srv.URL), testLogger()).Fetch(context.Background(), 50)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Instruments) != 1 {
		t.Fatalf("expected 1 instrument, got %d", len(res.Instruments))
	}
	if res.Dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", res.Dropped)
	}
	inst := res.Instruments[0]
	if inst.ID != "0xabc" || inst.KeyText != "Will BTC hit $100k?" {
		t.Errorf("unexpected instrument %+v", inst)
	}
	if inst.Yes() != 0.62 || inst.No() != 0.38 {
		t.Errorf("expected 0.62/0.38, got %v/%v", inst.Yes(), inst.No())
	}
	if inst.Volume != 1500.5 {
		t.Errorf("expected volume 1500.5, got %v", inst.Volume)
	}
	if inst.ReferenceURL != "https://polymarket.com/event/btc-100k" {
		t.Errorf("unexpected url %s", inst.ReferenceURL)
	}
}

func TestFetcher_FallsBackToMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events":
			w.WriteHeader(http.StatusInternalServerError)
		case "/markets":
			io.WriteString(w, `[{"id":"9","question":"Will it rain?","slug":"rain","outcomes":["Yes","No"],"outcomePrices":[0.3,0.7],"volume":12}]`)
		}
	}))
	defer srv.Close()

	res, err := NewFetcher(NewGammaClient(srv.URL), testLogger()).Fetch(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Instruments) != 1 {
		t.Fatalf("expected 1 instrument, got %d", len(res.Instruments))
	}
	if res.Instruments[0].ID != "9" {
		t.Errorf("expected id fallback to 9, got %s", res.Instruments[0].ID)
	}
	if res.Instruments[0].Yes() != 0.3 {
		t.Errorf("expected yes 0.3, got %v", res.Instruments[0].Yes())
	}
}

func TestFetcher_BothEndpointsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewFetcher(NewGammaClient(srv.URL), testLogger()).Fetch(context.Background(), 10)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestFetcher_Limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"slug":"s","markets":[
			{"id":"a","question":"A","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.5\",\"0.5\"]"},
			{"id":"b","question":"B","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.5\",\"0.5\"]"},
			{"id":"c","question":"C","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.5\",\"0.5\"]"}
		]}]`)
	}))
	defer srv.Close()

	res, err := NewFetcher(NewGammaClient(srv.URL), testLogger()).Fetch(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Instruments) != 2 {
		t.Errorf("expected 2 instruments, got %d", len(res.Instruments))
	}
}

func TestNormalize_OutOfRange(t *testing.T) {
	m := APIMarket{ID: "x", Question: "Q", Outcomes: stringList{"Yes", "No"}, OutcomePrices: stringList{"1.2", "0.1"}}
	if _, err := Normalize(m, ""); !errors.Is(err, domain.ErrPriceOutOfRange) {
		t.Errorf("expected ErrPriceOutOfRange, got %v", err)
	}
}

func TestNormalize_MissingPrice(t *testing.T) {
	m := APIMarket{ID: "x", Question: "Q", Outcomes: stringList{"Yes", "No"}, OutcomePrices: stringList{"0.4"}}
	if _, err := Normalize(m, ""); !errors.Is(err, domain.ErrMissingPrice) {
		t.Errorf("expected ErrMissingPrice, got %v", err)
	}
}
