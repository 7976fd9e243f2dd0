package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fnobot-go/internal/candle"
	"fnobot-go/internal/catalog"
	"fnobot-go/internal/resolver"
)

func (s *Server) resolveContract(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	asOf := time.Now().UTC()
	if status, err := s.completeQuery(c, &q, asOf); err != nil {
		s.fail(c, status, err)
		return
	}
	res, err := s.engine.Resolve(q, asOf)
	if err != nil {
		s.fail(c, resolutionStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, renderContract(res.Contract))
}

func (s *Server) deriveSignal(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	asOf := time.Now().UTC()
	if status, err := s.completeQuery(c, &q, asOf); err != nil {
		s.fail(c, status, err)
		return
	}
	report, err := s.engine.Analyze(c.Request.Context(), q, asOf)
	if err != nil {
		s.fail(c, resolutionStatus(err), err)
		return
	}
	sig := report.Signal
	c.JSON(http.StatusOK, gin.H{
		"contract": renderContract(report.Contract),
		"signal":   sig,
		"label":    sig.Direction.OptionLabel(),
	})
}

func (s *Server) annotatedSeries(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	asOf := time.Now().UTC()
	if status, err := s.completeQuery(c, &q, asOf); err != nil {
		s.fail(c, status, err)
		return
	}
	report, err := s.engine.Analyze(c.Request.Context(), q, asOf)
	if err != nil {
		s.fail(c, resolutionStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contract":   renderContract(report.Contract),
		"candles":    report.Annotated.Series,
		"indicators": renderIndicators(report.Annotated),
		"patterns":   renderPatterns(report.Annotated),
	})
}

// parseQuery builds a resolver query from request parameters. root and kind
// are required; strike selection defaults to nearest-to-reference when a
// reference price is supplied.
func parseQuery(c *gin.Context) (resolver.Query, error) {
	root := c.Query("root")
	if root == "" {
		return resolver.Query{}, fmt.Errorf("root parameter is required")
	}
	kind, err := parseKind(c.Query("kind"))
	if err != nil {
		return resolver.Query{}, err
	}
	q := resolver.Query{Root: root, Kind: kind}

	if raw := c.Query("expiry"); raw != "" {
		expiry, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return resolver.Query{}, fmt.Errorf("invalid expiry %q, want YYYY-MM-DD", raw)
		}
		q.Expiry = &expiry
	}

	if !kind.Option() {
		return q, nil
	}
	switch c.DefaultQuery("strike_policy", "nearest") {
	case "nearest":
		q.Strike = resolver.StrikeNearest
		if raw := c.Query("reference"); raw != "" {
			ref, err := decimal.NewFromString(raw)
			if err != nil {
				return resolver.Query{}, fmt.Errorf("invalid reference price %q", raw)
			}
			q.Reference = ref
		}
	case "exact":
		q.Strike = resolver.StrikeExact
		strike, err := decimal.NewFromString(c.Query("strike"))
		if err != nil {
			return resolver.Query{}, fmt.Errorf("exact strike selection needs a numeric strike")
		}
		q.Exact = strike
	default:
		return resolver.Query{}, fmt.Errorf("unknown strike_policy %q", c.Query("strike_policy"))
	}
	return q, nil
}

// completeQuery fills a missing nearest-strike reference by quoting the
// root's nearest future. Without a quote source the caller must supply one.
func (s *Server) completeQuery(c *gin.Context, q *resolver.Query, asOf time.Time) (int, error) {
	if !q.Kind.Option() || q.Strike != resolver.StrikeNearest || !q.Reference.IsZero() {
		return 0, nil
	}
	if s.quotes == nil {
		return http.StatusBadRequest, fmt.Errorf("nearest strike selection needs a numeric reference price")
	}
	ref, err := s.engine.AutoReference(c.Request.Context(), s.quotes, q.Root, asOf)
	if err != nil {
		return resolutionStatus(err), err
	}
	q.Reference = ref
	return 0, nil
}

func parseKind(raw string) (catalog.Kind, error) {
	switch catalog.Normalize(raw) {
	case "FUT", "FUTURE":
		return catalog.KindFuture, nil
	case "CE", "CALL":
		return catalog.KindCallOption, nil
	case "PE", "PUT":
		return catalog.KindPutOption, nil
	case "EQ", "EQUITY":
		return catalog.KindEquity, nil
	case "":
		return "", fmt.Errorf("kind parameter is required")
	default:
		return "", fmt.Errorf("unknown kind %q", raw)
	}
}

// resolutionStatus maps pipeline failures onto HTTP statuses: resolution
// misses read as 404, dirty upstream data as 502, anything else as 500.
func resolutionStatus(err error) int {
	var (
		notFound  *resolver.SymbolNotFoundError
		noExpiry  *resolver.NoMatchingExpiryError
		noStrike  *resolver.NoMatchingStrikeError
		badTs     *candle.TimestampParseError
		badNum    *candle.NumericParseError
		dupTs     *candle.DuplicateTimestampError
		empty     *candle.EmptySeriesError
		malformed *catalog.MalformedCatalogError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &noExpiry), errors.As(err, &noStrike):
		return http.StatusNotFound
	case errors.As(err, &badTs), errors.As(err, &badNum), errors.As(err, &dupTs),
		errors.As(err, &empty), errors.As(err, &malformed):
		return http.StatusBadGateway
	case errors.Is(err, catalog.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
