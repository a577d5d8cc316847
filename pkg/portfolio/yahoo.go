package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// Default Yahoo Finance hosts. The summary API lives on a separate host.
const (
	DefaultYahooChartURL   = "https://query1.finance.yahoo.com"
	DefaultYahooSummaryURL = "https://query2.finance.yahoo.com"
)

// Attempt names, also used as circuit breaker keys.
const (
	serviceQuote   = "Yahoo Quote"
	serviceChart   = "Yahoo Chart"
	serviceSummary = "Yahoo Summary"
)

// maxResponseSize limits external API responses to 1MB to prevent memory exhaustion.
const maxResponseSize = 1 << 20

var (
	errNotFound     = errors.New("symbol not found")
	errCircuitOpen  = errors.New("source cooling down after repeated failures")
	summaryModules  = "price,summaryDetail,defaultKeyStatistics,assetProfile"
	summaryResult   = "$.quoteSummary.result[0]"
	quoteResultPath = "$.quoteResponse.result[0]"
)

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// YahooOptions configures the Yahoo Finance gateway. Zero values fall back to
// sensible defaults.
type YahooOptions struct {
	Logger        *slog.Logger
	ChartBaseURL  string
	SummaryURL    string
	PriceCacheTTL time.Duration
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
	HTTPTimeout   time.Duration
	HTTPClient    HTTPDoer // Optional: inject custom client for testing
}

// Yahoo is the MarketData implementation backed by Yahoo Finance's public
// JSON endpoints.
type Yahoo struct {
	logger        *slog.Logger
	chartBase     string
	summaryBase   string
	cacheTTL      time.Duration
	failThreshold int
	failWindow    time.Duration
	cooldown      time.Duration
	client        HTTPDoer

	// Prices expire after cacheTTL; fundamentals and history are kept for
	// the life of the gateway.
	cacheMu      sync.RWMutex
	prices       map[string]priceEntry
	fundamentals map[string]Fundamentals
	history      map[string][]PricePoint

	circuitMu    sync.Mutex
	serviceState map[string]*serviceState
}

type priceEntry struct {
	price  float64
	source string
	ts     time.Time
}

type serviceState struct {
	failCount     int
	firstFailAt   time.Time
	cooldownUntil time.Time
}

// NewYahoo builds a gateway.
func NewYahoo(opts YahooOptions) *Yahoo {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultDuration(opts.HTTPTimeout, 10*time.Second)}
	}
	return &Yahoo{
		logger:        logger,
		chartBase:     strings.TrimRight(defaultString(opts.ChartBaseURL, DefaultYahooChartURL), "/"),
		summaryBase:   strings.TrimRight(defaultString(opts.SummaryURL, DefaultYahooSummaryURL), "/"),
		cacheTTL:      defaultDuration(opts.PriceCacheTTL, 30*time.Second),
		failThreshold: defaultInt(opts.FailThreshold, 3),
		failWindow:    defaultDuration(opts.FailWindow, 5*time.Minute),
		cooldown:      defaultDuration(opts.Cooldown, 2*time.Minute),
		client:        client,
		prices:        map[string]priceEntry{},
		fundamentals:  map[string]Fundamentals{},
		history:       map[string][]PricePoint{},
		serviceState:  map[string]*serviceState{},
	}
}

type fetchAttempt struct {
	name string
	fn   func(ctx context.Context, ticker string) (*float64, error)
}

// CurrentPrice tries the fast quote, then the last close of a one-day chart.
// It returns nil, nil when every source answered without a price, and an
// error only when no source succeeded and at least one failed outright.
func (y *Yahoo) CurrentPrice(ctx context.Context, ticker string) (*float64, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, validationError(ErrEmptyTicker)
	}
	if price, source, ok := y.getCachedPrice(ticker); ok {
		y.logger.Debug("price cache hit", "ticker", ticker, "source", source)
		return &price, nil
	}

	y.logger.Info("fetching price", "ticker", ticker)
	attempts := []fetchAttempt{
		{serviceQuote, y.quotePrice},
		{serviceChart, y.chartPrice},
	}
	var failures []error
	for _, attempt := range attempts {
		price, err := y.try(ctx, attempt.name, func(ctx context.Context) (*float64, error) {
			return attempt.fn(ctx, ticker)
		})
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", attempt.name, err))
			continue
		}
		if price != nil {
			y.setCachedPrice(ticker, *price, attempt.name)
			return price, nil
		}
	}
	if len(failures) == 0 {
		y.logger.Info("no price available", "ticker", ticker)
		return nil, nil
	}
	err := errors.Join(failures...)
	y.logger.Warn("price fetch failed", "ticker", ticker, "err", err)
	return nil, err
}

// try runs fn under the named source's circuit breaker. A missing symbol is
// an answer, not a failure.
func (y *Yahoo) try(ctx context.Context, service string, fn func(context.Context) (*float64, error)) (*float64, error) {
	if !y.serviceAvailable(service) {
		return nil, errCircuitOpen
	}
	price, err := fn(ctx)
	if errors.Is(err, errNotFound) {
		y.recordServiceSuccess(service)
		return nil, nil
	}
	if err != nil {
		y.recordServiceFailure(service)
		return nil, err
	}
	y.recordServiceSuccess(service)
	return price, nil
}

// CompanyName returns the short name reported for ticker, or "N/A".
func (y *Yahoo) CompanyName(ctx context.Context, ticker string) string {
	f, err := y.Fundamentals(ctx, ticker)
	if err != nil {
		return naText
	}
	return companyNameOrDefault(f.ShortName)
}

// Fundamentals reads quoteSummary and falls back to chart metadata. Results
// are cached per ticker for the gateway's lifetime.
func (y *Yahoo) Fundamentals(ctx context.Context, ticker string) (Fundamentals, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return Fundamentals{}, validationError(ErrEmptyTicker)
	}
	y.cacheMu.RLock()
	cached, ok := y.fundamentals[ticker]
	y.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	f, summaryErr := y.summaryFundamentals(ctx, ticker)
	if summaryErr != nil || f.ShortName == "" {
		meta, chartErr := y.fetchChartMeta(ctx, ticker)
		if meta != nil {
			mergeChartMeta(&f, meta)
		}
		if summaryErr != nil && meta == nil {
			cause := summaryErr
			if chartErr != nil {
				cause = errors.Join(summaryErr, chartErr)
			}
			err := WrapError(ErrCodeFetch, "fundamentals lookup failed", cause)
			y.logger.Warn("fundamentals fetch failed", "ticker", ticker, "err", err)
			return Fundamentals{Ticker: ticker}, err
		}
	}
	f.Ticker = ticker

	y.cacheMu.Lock()
	y.fundamentals[ticker] = f
	y.cacheMu.Unlock()
	return f, nil
}

// History returns daily closes for the window, oldest first. Results are
// cached per ticker and period.
func (y *Yahoo) History(ctx context.Context, ticker string, period Period) ([]PricePoint, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, validationError(ErrEmptyTicker)
	}
	period, err := ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}
	key := ticker + "|" + string(period)
	y.cacheMu.RLock()
	cached, ok := y.history[key]
	y.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	if !y.serviceAvailable(serviceChart) {
		return nil, WrapError(ErrCodeFetch, "history lookup failed", errCircuitOpen)
	}
	chart, err := y.fetchChart(ctx, ticker, string(period), historyInterval(period))
	if err != nil && !errors.Is(err, errNotFound) {
		y.recordServiceFailure(serviceChart)
		return nil, WrapError(ErrCodeFetch, "history lookup failed", err)
	}
	y.recordServiceSuccess(serviceChart)

	points := []PricePoint{}
	if chart != nil {
		points = chart.points()
	}
	y.cacheMu.Lock()
	y.history[key] = points
	y.cacheMu.Unlock()
	return points, nil
}

// historyInterval keeps long windows under the response size cap.
func historyInterval(p Period) string {
	switch p {
	case Period5Years:
		return "1wk"
	case PeriodMax:
		return "1mo"
	default:
		return "1d"
	}
}

func (y *Yahoo) quotePrice(ctx context.Context, ticker string) (*float64, error) {
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", y.chartBase, url.QueryEscape(ticker))
	obj, err := y.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}
	price := lookupFloat(obj, quoteResultPath+".regularMarketPrice")
	if price == nil || *price <= 0 {
		return nil, nil
	}
	return price, nil
}

func (y *Yahoo) chartPrice(ctx context.Context, ticker string) (*float64, error) {
	chart, err := y.fetchChart(ctx, ticker, "1d", "1d")
	if err != nil {
		return nil, err
	}
	if chart == nil {
		return nil, nil
	}
	points := chart.points()
	if len(points) == 0 {
		return nil, nil
	}
	last := points[len(points)-1].Close
	return &last, nil
}

func (y *Yahoo) fetchChartMeta(ctx context.Context, ticker string) (*chartMeta, error) {
	if !y.serviceAvailable(serviceChart) {
		return nil, errCircuitOpen
	}
	chart, err := y.fetchChart(ctx, ticker, "1d", "1d")
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		y.recordServiceFailure(serviceChart)
		return nil, err
	}
	y.recordServiceSuccess(serviceChart)
	if chart == nil {
		return nil, nil
	}
	return &chart.Meta, nil
}

func (y *Yahoo) summaryFundamentals(ctx context.Context, ticker string) (Fundamentals, error) {
	f := Fundamentals{Ticker: ticker}
	if !y.serviceAvailable(serviceSummary) {
		return f, errCircuitOpen
	}
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s", y.summaryBase, url.PathEscape(ticker), url.QueryEscape(summaryModules))
	obj, err := y.getJSON(ctx, u)
	if errors.Is(err, errNotFound) {
		y.recordServiceSuccess(serviceSummary)
		return f, ErrNoData
	}
	if err != nil {
		y.recordServiceFailure(serviceSummary)
		return f, err
	}
	y.recordServiceSuccess(serviceSummary)

	f.ShortName = lookupString(obj, summaryResult+".price.shortName")
	f.Currency = lookupString(obj, summaryResult+".price.currency")
	f.MarketCap = firstFloat(obj,
		summaryResult+".summaryDetail.marketCap.raw",
		summaryResult+".price.marketCap.raw")
	f.TrailingPE = lookupFloat(obj, summaryResult+".summaryDetail.trailingPE.raw")
	f.TrailingEPS = lookupFloat(obj, summaryResult+".defaultKeyStatistics.trailingEps.raw")
	f.DividendYield = lookupFloat(obj, summaryResult+".summaryDetail.dividendYield.raw")
	f.DividendRate = lookupFloat(obj, summaryResult+".summaryDetail.dividendRate.raw")
	f.FiftyTwoWeekHigh = lookupFloat(obj, summaryResult+".summaryDetail.fiftyTwoWeekHigh.raw")
	f.FiftyTwoWeekLow = lookupFloat(obj, summaryResult+".summaryDetail.fiftyTwoWeekLow.raw")
	f.Sector = lookupString(obj, summaryResult+".assetProfile.sector")
	f.Industry = lookupString(obj, summaryResult+".assetProfile.industry")
	return f, nil
}

func mergeChartMeta(f *Fundamentals, meta *chartMeta) {
	if f.ShortName == "" {
		f.ShortName = meta.ShortName
		if f.ShortName == "" {
			f.ShortName = meta.LongName
		}
	}
	if f.Currency == "" {
		f.Currency = meta.Currency
	}
	if f.FiftyTwoWeekHigh == nil {
		f.FiftyTwoWeekHigh = meta.FiftyTwoWeekHigh
	}
	if f.FiftyTwoWeekLow == nil {
		f.FiftyTwoWeekLow = meta.FiftyTwoWeekLow
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Currency           string   `json:"currency"`
	ShortName          string   `json:"shortName"`
	LongName           string   `json:"longName"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	FiftyTwoWeekHigh   *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow    *float64 `json:"fiftyTwoWeekLow"`
}

// points pairs timestamps with closes, skipping null closes.
func (r *chartResult) points() []PricePoint {
	points := []PricePoint{}
	if len(r.Indicators.Quote) == 0 {
		return points
	}
	closes := r.Indicators.Quote[0].Close
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, PricePoint{Date: time.Unix(ts, 0).UTC(), Close: *closes[i]})
	}
	return points
}

func (y *Yahoo) fetchChart(ctx context.Context, ticker, rng, interval string) (*chartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s", y.chartBase, url.PathEscape(ticker), rng, interval)
	body, err := y.httpGet(ctx, u)
	if err != nil {
		return nil, err
	}
	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, nil
	}
	return &payload.Chart.Result[0], nil
}

func (y *Yahoo) getJSON(ctx context.Context, u string) (any, error) {
	body, err := y.httpGet(ctx, u)
	if err != nil {
		return nil, err
	}
	var obj any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return obj, nil
}

func (y *Yahoo) httpGet(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

func (y *Yahoo) getCachedPrice(ticker string) (float64, string, bool) {
	y.cacheMu.RLock()
	defer y.cacheMu.RUnlock()
	entry, ok := y.prices[ticker]
	if !ok || time.Since(entry.ts) > y.cacheTTL {
		return 0, "", false
	}
	return entry.price, entry.source, true
}

func (y *Yahoo) setCachedPrice(ticker string, price float64, source string) {
	y.cacheMu.Lock()
	defer y.cacheMu.Unlock()
	y.prices[ticker] = priceEntry{price: price, source: source, ts: time.Now()}
}

func (y *Yahoo) serviceAvailable(service string) bool {
	y.circuitMu.Lock()
	defer y.circuitMu.Unlock()
	state, ok := y.serviceState[service]
	if !ok {
		return true
	}
	return time.Now().After(state.cooldownUntil)
}

func (y *Yahoo) recordServiceFailure(service string) {
	y.circuitMu.Lock()
	defer y.circuitMu.Unlock()
	state := y.serviceState[service]
	now := time.Now()
	if state == nil {
		state = &serviceState{firstFailAt: now}
		y.serviceState[service] = state
	}
	if now.Sub(state.firstFailAt) > y.failWindow {
		state.failCount = 0
		state.firstFailAt = now
	}
	state.failCount++
	if state.failCount >= y.failThreshold {
		state.cooldownUntil = now.Add(y.cooldown)
		y.logger.Warn("market data source cooling down", "service", service, "until", state.cooldownUntil)
	}
}

func (y *Yahoo) recordServiceSuccess(service string) {
	y.circuitMu.Lock()
	defer y.circuitMu.Unlock()
	delete(y.serviceState, service)
}

// lookup evaluates a JSONPath expression and unwraps single-element results.
func lookup(obj any, path string) any {
	val, err := jsonpath.Get(path, obj)
	if err != nil {
		return nil
	}
	// jsonpath may answer with a list of one match or the match itself.
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		val = list[0]
	}
	return val
}

func lookupFloat(obj any, path string) *float64 {
	v, err := parseFloat(lookup(obj, path))
	if err != nil {
		return nil
	}
	return &v
}

func firstFloat(obj any, paths ...string) *float64 {
	for _, p := range paths {
		if v := lookupFloat(obj, p); v != nil {
			return v
		}
	}
	return nil
}

func lookupString(obj any, path string) string {
	s, _ := lookup(obj, path).(string)
	return strings.TrimSpace(s)
}

func parseFloat(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, errors.New("no value")
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		if v == "" {
			return 0, errors.New("empty")
		}
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
