package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Alias1177/RiskAgent/internal/analysis/market"
)

var _ market.CandleProvider = (*Client)(nil)

const seriesResponse = `{
  "meta": {"symbol": "EUR/USD", "interval": "1h"},
  "values": [
    {"datetime": "2024-05-06 12:00:00", "open": "1.0770", "high": "1.0780", "low": "1.0765", "close": "1.0775", "volume": "0"},
    {"datetime": "2024-05-06 11:00:00", "open": "1.0760", "high": "1.0772", "low": "1.0758", "close": "1.0770", "volume": "0"},
    {"datetime": "2024-05-06 10:00:00", "open": "1.0755", "high": "1.0763", "low": "1.0750", "close": "1.0760", "volume": "0"}
  ],
  "status": "ok"
}`

func TestGetCandles(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/time_series" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = map[string]string{
			"symbol":     r.URL.Query().Get("symbol"),
			"interval":   r.URL.Query().Get("interval"),
			"outputsize": r.URL.Query().Get("outputsize"),
			"apikey":     r.URL.Query().Get("apikey"),
		}
		w.Write([]byte(seriesResponse))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{APIKey: "key", BaseURL: srv.URL, RequestsPerSec: 50})
	candles, err := c.GetCandles(context.Background(), "EUR/USD", "1h", 3)
	if err != nil {
		t.Fatalf("GetCandles() error = %v", err)
	}

	if gotQuery["symbol"] != "EUR/USD" || gotQuery["interval"] != "1h" || gotQuery["outputsize"] != "3" || gotQuery["apikey"] != "key" {
		t.Errorf("query = %v", gotQuery)
	}
	if len(candles) != 3 {
		t.Fatalf("got %d candles, want 3", len(candles))
	}

	first := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	if !candles[0].Timestamp.Equal(first) {
		t.Errorf("first Timestamp = %v, want %v", candles[0].Timestamp, first)
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			t.Errorf("candles not oldest first at %d", i)
		}
	}
	if candles[2].Close != 1.0775 {
		t.Errorf("last Close = %v, want 1.0775", candles[2].Close)
	}
}

func TestGetCandlesInterval(t *testing.T) {
	tests := []struct {
		timeframe string
		want      string
	}{
		{"15m", "15min"},
		{"1m", "1min"},
		{"5m", "5min"},
		{"1h", "1h"},
		{"4h", "4h"},
		{"1d", "1day"},
		{"1day", "1day"},
		{"15min", "15min"},
	}

	for _, tt := range tests {
		t.Run(tt.timeframe, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Query().Get("interval")
				w.Write([]byte(seriesResponse))
			}))
			defer srv.Close()

			c := NewClient(ClientOptions{BaseURL: srv.URL, RequestsPerSec: 50})
			if _, err := c.GetCandles(context.Background(), "EUR/USD", tt.timeframe, 3); err != nil {
				t.Fatalf("GetCandles() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("interval = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInterval(t *testing.T) {
	tests := map[string]string{
		" 15M ": "15min",
		"daily": "1day",
		"h1":    "1h",
		"1week": "1week",
		"45min": "45min",
		"":      "",
	}
	for in, want := range tests {
		if got := Interval(in); got != want {
			t.Errorf("Interval(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetCandlesErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"api error", `{"code": 400, "message": "invalid symbol", "status":"error"}`},
		{"empty values", `{"meta": {}, "values": [], "status": "ok"}`},
		{"bad datetime", `{"values": [{"datetime": "yesterday", "open": "1", "high": "1", "low": "1", "close": "1"}], "status": "ok"}`},
		{"not json", `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(ClientOptions{BaseURL: srv.URL, RequestsPerSec: 50})
			if _, err := c.GetCandles(context.Background(), "EUR/USD", "1h", 10); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseDatetime(t *testing.T) {
	ts, err := parseDatetime("2024-05-06")
	if err != nil {
		t.Fatalf("parseDatetime() error = %v", err)
	}
	if !ts.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("parseDatetime() = %v", ts)
	}
}
