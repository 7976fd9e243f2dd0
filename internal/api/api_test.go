package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnobot-go/internal/candle"
	"fnobot-go/internal/catalog"
	"fnobot-go/internal/engine"
	"fnobot-go/internal/venue"
)

type stubFetcher struct {
	rows []candle.RawCandle
}

func (f *stubFetcher) FetchCandles(context.Context, venue.CandleRequest) ([]candle.RawCandle, error) {
	return f.rows, nil
}

func risingRows(n int) []candle.RawCandle {
	start := time.Now().UTC().Add(-time.Duration(n) * 15 * time.Minute)
	rows := make([]candle.RawCandle, n)
	for i := range rows {
		px := 22000 + float64(i)*10
		rows[i] = candle.RawCandle{
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute).Format(time.RFC3339),
			Open:      fmt.Sprintf("%.2f", px-10),
			High:      fmt.Sprintf("%.2f", px+5),
			Low:       fmt.Sprintf("%.2f", px-15),
			Close:     fmt.Sprintf("%.2f", px),
			Volume:    "1000",
		}
	}
	return rows
}

func futureExpiry() string {
	return time.Now().UTC().AddDate(0, 2, 0).Format("02Jan2006")
}

type stubQuotes struct {
	ltp float64
	err error
}

func (q *stubQuotes) FetchLTP(context.Context, catalog.Record) (float64, error) {
	return q.ltp, q.err
}

func testRouter(t *testing.T, rows []candle.RawCandle, loaded bool) http.Handler {
	return testRouterQuotes(t, rows, loaded, nil)
}

func testRouterQuotes(t *testing.T, rows []candle.RawCandle, loaded bool, quotes engine.QuoteFetcher) http.Handler {
	t.Helper()
	store := catalog.NewStore()
	eng := engine.New(zerolog.Nop(), store, &stubFetcher{rows: rows}, engine.Options{})
	if loaded {
		err := eng.ReloadCatalog([]catalog.RawRow{
			{Token: "35001", Symbol: "NIFTY" + catalog.Normalize(futureExpiry()) + "FUT", Name: "NIFTY", Expiry: futureExpiry(), InstrumentType: "FUTIDX", ExchSeg: "NFO"},
			{Token: "43580", Symbol: "NIFTY" + catalog.Normalize(futureExpiry()) + "22000CE", Name: "NIFTY", Expiry: futureExpiry(), Strike: "2200000", InstrumentType: "OPTIDX", ExchSeg: "NFO"},
			{Token: "43581", Symbol: "NIFTY" + catalog.Normalize(futureExpiry()) + "22100CE", Name: "NIFTY", Expiry: futureExpiry(), Strike: "2210000", InstrumentType: "OPTIDX", ExchSeg: "NFO"},
		})
		require.NoError(t, err)
	}
	reloads := 0
	server := NewServer(zerolog.Nop(), eng, quotes, func(context.Context) error {
		reloads++
		return nil
	})
	return server.Router()
}

func doGet(t *testing.T, handler http.Handler, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	handler.ServeHTTP(rec, req)

	body := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	handler := testRouter(t, nil, true)
	rec, _ := doGet(t, handler, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestResolveContract(t *testing.T) {
	handler := testRouter(t, nil, true)
	rec, _ := doGet(t, handler, "/contracts/resolve?root=NIFTY&kind=CE&reference=22050")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var contract struct {
		Token  string `json:"token"`
		Strike string `json:"strike"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contract))
	// Equidistant strikes tie toward the lower one.
	assert.Equal(t, "22000", contract.Strike)
	assert.Equal(t, "43580", contract.Token)
}

func TestResolveValidation(t *testing.T) {
	handler := testRouter(t, nil, true)

	rec, _ := doGet(t, handler, "/contracts/resolve?kind=CE&reference=22050")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doGet(t, handler, "/contracts/resolve?root=NIFTY&kind=CE")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "nearest policy without reference must fail")

	rec, _ = doGet(t, handler, "/contracts/resolve?root=NIFTY&kind=banana")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveAutoReference(t *testing.T) {
	handler := testRouterQuotes(t, nil, true, &stubQuotes{ltp: 22040})
	rec, _ := doGet(t, handler, "/contracts/resolve?root=NIFTY&kind=CE")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var contract struct {
		Strike string `json:"strike"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contract))
	// 22040 quoted off the nearest future lands on the 22000 strike.
	assert.Equal(t, "22000", contract.Strike)
}

func TestResolveAutoReferenceQuoteFailure(t *testing.T) {
	handler := testRouterQuotes(t, nil, true, &stubQuotes{err: fmt.Errorf("venue down")})
	rec, body := doGet(t, handler, "/contracts/resolve?root=NIFTY&kind=CE")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, string(body["error"]), "venue down")
}

func TestResolveUnknownRootIs404(t *testing.T) {
	handler := testRouter(t, nil, true)
	rec, body := doGet(t, handler, "/contracts/resolve?root=FINNIFTY&kind=CE&reference=22050")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, string(body["error"]), "FINNIFTY")
	assert.NotEmpty(t, body["request_id"])
}

func TestSignalBuy(t *testing.T) {
	handler := testRouter(t, risingRows(40), true)
	rec, body := doGet(t, handler, "/signal?root=NIFTY&kind=CE&reference=22050")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sig struct {
		Direction string `json:"direction"`
		Levels    *struct {
			Entry  float64 `json:"entry"`
			Target float64 `json:"target"`
			Stop   float64 `json:"stop"`
		} `json:"levels"`
	}
	require.NoError(t, json.Unmarshal(body["signal"], &sig))
	assert.Equal(t, "BUY", sig.Direction)
	require.NotNil(t, sig.Levels)
	assert.Less(t, sig.Levels.Stop, sig.Levels.Entry)
	assert.Less(t, sig.Levels.Entry, sig.Levels.Target)
	assert.Equal(t, `"CALL"`, string(body["label"]))
}

func TestSignalWarmupHolds(t *testing.T) {
	handler := testRouter(t, risingRows(3), true)
	rec, body := doGet(t, handler, "/signal?root=NIFTY&kind=CE&reference=22050")
	require.Equal(t, http.StatusOK, rec.Code)

	var sig struct {
		Direction string          `json:"direction"`
		Levels    json.RawMessage `json:"levels"`
	}
	require.NoError(t, json.Unmarshal(body["signal"], &sig))
	assert.Equal(t, "HOLD", sig.Direction)
	assert.Empty(t, sig.Levels)
}

func TestSeriesWarmupRendersNulls(t *testing.T) {
	handler := testRouter(t, risingRows(10), true)
	rec, body := doGet(t, handler, "/series?root=NIFTY&kind=CE&reference=22050")
	require.Equal(t, http.StatusOK, rec.Code)

	var indicators map[string][]*float64
	require.NoError(t, json.Unmarshal(body["indicators"], &indicators))
	rsi := indicators["rsi"]
	require.Len(t, rsi, 10)
	assert.Nil(t, rsi[0], "warm-up prefix must render as null, not zero")
	fast := indicators["ema_fast"]
	assert.NotNil(t, fast[9])
}

func TestSignalDirtyDataIs502(t *testing.T) {
	rows := risingRows(2)
	rows[1].Timestamp = rows[0].Timestamp
	handler := testRouter(t, rows, true)
	rec, _ := doGet(t, handler, "/signal?root=NIFTY&kind=CE&reference=22050")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSignalBeforeCatalogLoadIs503(t *testing.T) {
	handler := testRouter(t, risingRows(40), false)
	rec, _ := doGet(t, handler, "/signal?root=NIFTY&kind=CE&reference=22050")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCatalogReload(t *testing.T) {
	handler := testRouter(t, nil, true)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/catalog/reload", nil)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
