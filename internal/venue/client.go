// Package venue hosts the thin I/O clients for the trading venue: scrip
// master download, historical candle fetch, and the LTP stream. It owns
// transport concerns only; all parsing/validation beyond field extraction
// lives in the core packages.
package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"fnobot-go/internal/candle"
	"fnobot-go/internal/catalog"
)

// Credentials are pre-issued session tokens; establishing the session (TOTP
// login) is out of scope for this process.
type Credentials struct {
	APIKey      string
	ClientCode  string
	AccessToken string
}

// Client talks to the venue REST API.
type Client struct {
	log            zerolog.Logger
	http           *http.Client
	baseURL        string
	scripMasterURL string
	creds          Credentials
}

// NewClient builds a venue client with a bounded request timeout.
func NewClient(log zerolog.Logger, baseURL, scripMasterURL string, timeout time.Duration, creds Credentials) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:            log,
		http:           &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		scripMasterURL: scripMasterURL,
		creds:          creds,
	}
}

// FetchScripMaster downloads the instrument master and returns its raw rows.
// Normalization happens in catalog.Load so a transport success with dirty
// data still fails loudly at the right layer.
func (c *Client) FetchScripMaster(ctx context.Context) ([]catalog.RawRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.scripMasterURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build scrip master request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch scrip master: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch scrip master: status %d", resp.StatusCode)
	}

	var rows []catalog.RawRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode scrip master: %w", err)
	}
	c.log.Info().Int("rows", len(rows)).Msg("scrip master downloaded")
	return rows, nil
}

// CandleRequest mirrors the venue historical-data request body.
type CandleRequest struct {
	Exchange string `json:"exchange"`
	Token    string `json:"symboltoken"`
	Interval string `json:"interval"`
	From     string `json:"fromdate"`
	To       string `json:"todate"`
}

// NewCandleRequest formats a request for the resolved contract over a
// trailing window, using the venue's minute-precision date format.
func NewCandleRequest(rec catalog.Record, interval string, from, to time.Time) CandleRequest {
	const layout = "2006-01-02 15:04"
	return CandleRequest{
		Exchange: string(rec.Segment),
		Token:    rec.Token,
		Interval: interval,
		From:     from.Format(layout),
		To:       to.Format(layout),
	}
}

type candleResponse struct {
	Status  bool    `json:"status"`
	Message string  `json:"message"`
	Data    [][]any `json:"data"`
}

const candleDataPath = "/rest/secure/angelbroking/historical/v1/getCandleData"

// FetchCandles pulls historical candles for a resolved contract. Rows come
// back as raw text fields; candle.Normalize owns all validation.
func (c *Client) FetchCandles(ctx context.Context, req CandleRequest) ([]candle.RawCandle, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal candle request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+candleDataPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build candle request: %w", err)
	}
	c.authHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch candles: status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var decoded candleResponse
	if err := decoder.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode candle response: %w", err)
	}
	if !decoded.Status {
		return nil, fmt.Errorf("venue rejected candle request: %s", decoded.Message)
	}
	return rawCandles(decoded.Data), nil
}

// rawCandles maps the venue's positional rows (timestamp, O, H, L, C, V)
// onto named raw fields. A fully empty row is marked sentinel-empty;
// partially filled rows keep their gaps so the normalizer rejects them.
func rawCandles(data [][]any) []candle.RawCandle {
	rows := make([]candle.RawCandle, 0, len(data))
	for _, row := range data {
		if len(row) == 0 {
			rows = append(rows, candle.RawCandle{Empty: true})
			continue
		}
		var raw candle.RawCandle
		fields := []*string{&raw.Timestamp, &raw.Open, &raw.High, &raw.Low, &raw.Close, &raw.Volume}
		for i := 0; i < len(fields) && i < len(row); i++ {
			*fields[i] = stringify(row[i])
		}
		rows = append(rows, raw)
	}
	return rows
}

// DecodeCandleRows reads a plain JSON array of positional candle rows, the
// same shape as the historical endpoint's data field. Lets the scanner run
// offline against a saved response.
func DecodeCandleRows(r io.Reader) ([]candle.RawCandle, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	var data [][]any
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode candle rows: %w", err)
	}
	return rawCandles(data), nil
}

// stringify keeps the venue's textual representation intact: numbers decode
// as json.Number, so no float round-trip touches the data.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

type ltpRequest struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	Token         string `json:"symboltoken"`
}

type ltpResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		LTP json.Number `json:"ltp"`
	} `json:"data"`
}

const ltpPath = "/rest/secure/angelbroking/order/v1/getLtpData"

// FetchLTP quotes the last traded price for a resolved contract.
func (c *Client) FetchLTP(ctx context.Context, rec catalog.Record) (float64, error) {
	body, err := json.Marshal(ltpRequest{
		Exchange:      string(rec.Segment),
		TradingSymbol: rec.TradingSymbol,
		Token:         rec.Token,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal ltp request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ltpPath, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build ltp request: %w", err)
	}
	c.authHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("fetch ltp: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch ltp: status %d", resp.StatusCode)
	}

	var decoded ltpResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode ltp response: %w", err)
	}
	if !decoded.Status {
		return 0, fmt.Errorf("venue rejected ltp request: %s", decoded.Message)
	}
	price, err := decoded.Data.LTP.Float64()
	if err != nil {
		return 0, fmt.Errorf("non-numeric ltp %q", decoded.Data.LTP.String())
	}
	return price, nil
}

func (c *Client) authHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-PrivateKey", c.creds.APIKey)
	req.Header.Set("X-ClientCode", c.creds.ClientCode)
	if c.creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)
	}
}
