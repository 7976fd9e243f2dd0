package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fnobot-go/internal/signal"
)

// Stream consumes the venue's LTP websocket for a set of resolved contract
// tokens and republishes ticks on a channel. It reconnects with backoff
// until the context is canceled.
type Stream struct {
	log    zerolog.Logger
	url    string
	creds  Credentials
	tokens map[string]string // token -> trading symbol
}

// NewStream builds an LTP stream for the given token/symbol pairs.
func NewStream(log zerolog.Logger, url string, creds Credentials, tokens map[string]string) *Stream {
	copied := make(map[string]string, len(tokens))
	for token, sym := range tokens {
		copied[token] = sym
	}
	return &Stream{log: log, url: url, creds: creds, tokens: copied}
}

type streamSubscribe struct {
	Action int `json:"action"`
	Params struct {
		Mode   int      `json:"mode"`
		Tokens []string `json:"tokens"`
	} `json:"params"`
}

type streamQuote struct {
	Token    string `json:"tk"`
	LTP      string `json:"ltp"`
	Exchange int64  `json:"e"`
	Ts       int64  `json:"ft"` // feed time, epoch millis
}

// Run pushes ticks onto out until the context is canceled.
func (s *Stream) Run(ctx context.Context, out chan<- signal.Tick) error {
	if len(s.tokens) == 0 {
		return fmt.Errorf("ltp stream requires at least one token")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("ltp stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *Stream) consume(ctx context.Context, out chan<- signal.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := map[string][]string{
		"Authorization": {"Bearer " + s.creds.AccessToken},
		"x-api-key":     {s.creds.APIKey},
		"x-client-code": {s.creds.ClientCode},
	}
	conn, _, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := s.subscribe(conn); err != nil {
		return err
	}
	s.log.Info().Int("tokens", len(s.tokens)).Msg("connected ltp stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("ltp stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		tick, ok := s.parseQuote(payload)
		if !ok {
			continue
		}
		select {
		case out <- tick:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Stream) subscribe(conn *websocket.Conn) error {
	var sub streamSubscribe
	sub.Action = 1
	sub.Params.Mode = 1 // LTP mode
	for token := range s.tokens {
		sub.Params.Tokens = append(sub.Params.Tokens, token)
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(sub)
}

func (s *Stream) parseQuote(payload []byte) (signal.Tick, bool) {
	var quote streamQuote
	if err := json.Unmarshal(payload, &quote); err != nil {
		return signal.Tick{}, false
	}
	sym, ok := s.tokens[quote.Token]
	if !ok {
		return signal.Tick{}, false
	}
	price, err := strconv.ParseFloat(quote.LTP, 64)
	if err != nil || price <= 0 {
		return signal.Tick{}, false
	}
	ts := time.Now().UTC()
	if quote.Ts > 0 {
		ts = time.UnixMilli(quote.Ts).UTC()
	}
	return signal.Tick{Symbol: sym, Token: quote.Token, Price: price, Ts: ts}, true
}
