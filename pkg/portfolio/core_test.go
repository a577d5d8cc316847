package portfolio

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenWithOptionsValidation(t *testing.T) {
	if _, err := OpenWithOptions(Options{}); err == nil {
		t.Fatalf("expected error for empty db path")
	}
	_, err := OpenWithOptions(Options{
		DBPath:         filepath.Join(t.TempDir(), "x.db"),
		Logger:         testLogger(),
		AccountBackend: "dropbox",
	})
	if !IsErrorCode(err, ErrCodeInvalidInput) {
		t.Fatalf("expected invalid input for unknown backend, got %v", err)
	}
	_, err = OpenWithOptions(Options{
		DBPath:         filepath.Join(t.TempDir(), "y.db"),
		Logger:         testLogger(),
		AccountBackend: BackendFirebase,
	})
	if err == nil {
		t.Fatalf("expected firebase backend without project to fail")
	}
}

func TestDispatchAddHolding(t *testing.T) {
	core := setupTestCore(t, newStubMarket())
	s := core.Sessions().Create()
	ctx := context.Background()

	n, err := core.Dispatch(ctx, s, AddHolding{Ticker: "aapl", Quantity: dec("10"), BuyPrice: dec("150")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if n.Level != NoticeSuccess || n.Message != "AAPL added to your portfolio!" {
		t.Fatalf("unexpected notice %+v", n)
	}
	n, err = core.Dispatch(ctx, s, AddHolding{Ticker: "AAPL", Quantity: dec("5"), BuyPrice: dec("180")})
	if err != nil || n.Message != "AAPL updated!" {
		t.Fatalf("merge: %+v %v", n, err)
	}
	h, _ := s.Ledger.Get("AAPL")
	assertDecimal(t, "market value", h.MarketValue, "2550")
	assertDecimal(t, "percent return", h.PercentReturn, "6.25")
	if h.CompanyName != "Apple Inc." {
		t.Fatalf("unexpected company %q", h.CompanyName)
	}

	logs, err := core.GetOperationLogs(ctx, s.ID, 10, 0)
	if err != nil {
		t.Fatalf("GetOperationLogs: %v", err)
	}
	if len(logs) != 2 || logs[0].Operation != OpAdd || logs[0].Quantity == nil {
		t.Fatalf("unexpected logs %+v", logs)
	}
	assertDecimal(t, "logged quantity", logs[0].Quantity.Decimal, "5")
}

func TestDispatchAddHoldingFailures(t *testing.T) {
	md := newStubMarket()
	md.errs = map[string]error{"DOWN": errors.New("timeout")}
	core := setupTestCore(t, md)
	s := core.Sessions().Create()
	ctx := context.Background()

	calls := md.calls
	n, err := core.Dispatch(ctx, s, AddHolding{Ticker: "AAPL", Quantity: dec("0"), BuyPrice: dec("1")})
	if !errors.Is(err, ErrNonPositiveQuantity) || n.Level != NoticeError {
		t.Fatalf("expected validation error, got %+v %v", n, err)
	}
	if md.calls != calls {
		t.Fatalf("invalid input must not reach the gateway")
	}

	n, err = core.Dispatch(ctx, s, AddHolding{Ticker: "ZZZZ", Quantity: dec("1"), BuyPrice: dec("1")})
	if !IsErrorCode(err, ErrCodeFetch) || n.Message != "Could not fetch data for ZZZZ." {
		t.Fatalf("expected no-price fetch error, got %+v %v", n, err)
	}
	n, err = core.Dispatch(ctx, s, AddHolding{Ticker: "DOWN", Quantity: dec("1"), BuyPrice: dec("1")})
	if !IsErrorCode(err, ErrCodeFetch) || n.Message != "Error fetching data for DOWN." {
		t.Fatalf("expected fetch error, got %+v %v", n, err)
	}
	if s.Ledger.Len() != 0 {
		t.Fatalf("ledger must be unchanged after failures")
	}
}

func TestDispatchViewCommands(t *testing.T) {
	core := setupTestCore(t, newStubMarket())
	s := core.Sessions().Create()
	ctx := context.Background()

	if n, _ := core.Dispatch(ctx, s, SelectTab{Tab: "company"}); n.Message != "No holdings available." {
		t.Fatalf("expected empty company notice, got %+v", n)
	}
	_, _ = core.Dispatch(ctx, s, AddHolding{Ticker: "AAPL", Quantity: dec("1"), BuyPrice: dec("1")})
	_, _ = core.Dispatch(ctx, s, AddHolding{Ticker: "MSFT", Quantity: dec("1"), BuyPrice: dec("1")})

	if _, err := core.Dispatch(ctx, s, SelectTab{Tab: "Company"}); err != nil {
		t.Fatalf("select tab: %v", err)
	}
	if s.View.ActiveTab != TabCompany || s.View.ViewTicker != "AAPL" {
		t.Fatalf("expected company tab on first ticker, got %+v", s.View)
	}
	if _, err := core.Dispatch(ctx, s, SelectTab{Tab: "news"}); !errors.Is(err, ErrInvalidTab) {
		t.Fatalf("expected ErrInvalidTab, got %v", err)
	}
	if _, err := core.Dispatch(ctx, s, SelectTicker{Ticker: "TSLA"}); !IsErrorCode(err, ErrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := core.Dispatch(ctx, s, SelectTicker{Ticker: "msft"}); err != nil || s.View.ViewTicker != "MSFT" {
		t.Fatalf("select ticker: %v %+v", err, s.View)
	}
	if _, err := core.Dispatch(ctx, s, SelectPeriod{Period: "2y"}); err != nil || s.View.HistoryPeriod != Period2Years {
		t.Fatalf("select period: %v %+v", err, s.View)
	}
	if _, err := core.Dispatch(ctx, s, SelectPeriod{Period: "2d"}); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}

	n, err := core.Dispatch(ctx, s, RemoveHolding{Ticker: "MSFT"})
	if err != nil || n.Level != NoticeSuccess {
		t.Fatalf("remove: %+v %v", n, err)
	}
	if s.View.ViewTicker != "" || s.View.ActiveTab != TabOverview {
		t.Fatalf("removing the viewed ticker should return to overview, got %+v", s.View)
	}
	n, err = core.Dispatch(ctx, s, RemoveHolding{Ticker: "MSFT"})
	if err != nil || n.Level != NoticeInfo || s.Ledger.Len() != 1 {
		t.Fatalf("remove missing: %+v %v", n, err)
	}

	if _, err := core.Dispatch(ctx, s, ClearPortfolio{}); err != nil || s.Ledger.Len() != 0 {
		t.Fatalf("clear: %v", err)
	}
}

func TestDispatchRefreshPrices(t *testing.T) {
	md := newStubMarket()
	core := setupTestCore(t, md)
	s := core.Sessions().Create()
	ctx := context.Background()
	_, _ = core.Dispatch(ctx, s, AddHolding{Ticker: "AAPL", Quantity: dec("2"), BuyPrice: dec("100")})
	_, _ = core.Dispatch(ctx, s, AddHolding{Ticker: "MSFT", Quantity: dec("1"), BuyPrice: dec("100")})

	md.prices["AAPL"] = 200
	delete(md.prices, "MSFT")
	n, err := core.Dispatch(ctx, s, RefreshPrices{})
	if err != nil || n.Level != NoticeWarning || !strings.Contains(n.Message, "MSFT") {
		t.Fatalf("unexpected refresh result %+v %v", n, err)
	}
	h, _ := s.Ledger.Get("AAPL")
	assertDecimal(t, "refreshed value", h.MarketValue, "400")
}

func TestImportAndExportCSV(t *testing.T) {
	core := setupTestCore(t, newStubMarket())
	s := core.Sessions().Create()
	ctx := context.Background()

	_, n, err := core.ImportCSV(ctx, s, strings.NewReader("Ticker,Quantity\nAAPL,1\n"))
	if !errors.Is(err, ErrMissingColumns) || n.Level != NoticeError || s.Ledger.Len() != 0 {
		t.Fatalf("expected whole-file rejection, got %+v %v", n, err)
	}

	csv := "Ticker,Quantity,Buy Price\nAAPL,10,150\nZZZZ,1,1\nAAPL,5,180\n"
	result, n, err := core.ImportCSV(ctx, s, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(result.Imported()) != 2 || len(result.Skipped()) != 1 || n.Level != NoticeWarning {
		t.Fatalf("unexpected import result %+v %+v", result, n)
	}

	var buf bytes.Buffer
	if err := core.ExportCSV(s, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "https://finance.yahoo.com/quote/AAPL,Apple Inc.,15,160.00,170.00,2550.00,150.00,6.25") {
		t.Fatalf("unexpected export:\n%s", buf.String())
	}
}

func TestSaveLoadRoundTripLocal(t *testing.T) {
	core := setupTestCore(t, newStubMarket())
	ctx := context.Background()
	s := core.Sessions().Create()

	if _, err := core.SavePortfolio(ctx, s); !IsErrorCode(err, ErrCodeAuth) {
		t.Fatalf("expected auth error when signed out, got %v", err)
	}
	if _, err := core.SignUp(ctx, s, "Jane.Doe@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if n, err := core.LoadPortfolio(ctx, s); err != nil || n.Message != "No saved portfolio found." {
		t.Fatalf("expected empty load, got %+v %v", n, err)
	}

	_, _ = core.Dispatch(ctx, s, AddHolding{Ticker: "AAPL", Quantity: dec("10"), BuyPrice: dec("150")})
	_, _ = core.Dispatch(ctx, s, AddHolding{Ticker: "AAPL", Quantity: dec("5"), BuyPrice: dec("180")})
	_, _ = core.Dispatch(ctx, s, AddHolding{Ticker: "MSFT", Quantity: dec("3"), BuyPrice: dec("100")})
	if _, err := core.SavePortfolio(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	saved := s.Ledger.Holdings()

	other := core.Sessions().Create()
	if _, err := core.SignIn(ctx, other, "jane.doe@example.com", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, err := core.LoadPortfolio(ctx, other); err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded := other.Ledger.Holdings()
	if len(loaded) != len(saved) {
		t.Fatalf("expected %d holdings, got %d", len(saved), len(loaded))
	}
	for i := range saved {
		if loaded[i].Ticker != saved[i].Ticker ||
			!loaded[i].Quantity.Equal(saved[i].Quantity) ||
			!loaded[i].BuyPrice.Equal(saved[i].BuyPrice) {
			t.Fatalf("holding %d differs: saved %+v loaded %+v", i, saved[i], loaded[i])
		}
	}

	if _, err := core.Dispatch(ctx, other, SignOut{}); err != nil || other.Auth != nil {
		t.Fatalf("sign out: %v", err)
	}
	if other.Ledger.Len() != 2 {
		t.Fatalf("sign out must keep the ledger")
	}
}

type failingStore struct{}

func (failingStore) Save(context.Context, string, []Holding) error {
	return WrapError(ErrCodePersistence, "save failed", errors.New("unavailable"))
}

func (failingStore) Load(context.Context, string) ([]Holding, error) {
	return nil, WrapError(ErrCodePersistence, "load failed", errors.New("unavailable"))
}

func TestPersistenceFailureKeepsLedger(t *testing.T) {
	md := newStubMarket()
	core, err := OpenWithOptions(Options{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: testLogger(),
		Market: md,
		Store:  failingStore{},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer core.Close()
	ctx := context.Background()
	s := core.Sessions().Create()
	s.Auth = &AuthSession{AccountID: "a@b.c"}
	_, _ = core.Dispatch(ctx, s, AddHolding{Ticker: "AAPL", Quantity: dec("1"), BuyPrice: dec("1")})

	n, err := core.LoadPortfolio(ctx, s)
	if !IsErrorCode(err, ErrCodePersistence) || n.Level != NoticeWarning {
		t.Fatalf("expected persistence warning, got %+v %v", n, err)
	}
	if s.Ledger.Len() != 1 {
		t.Fatalf("failed load must not touch the ledger")
	}
	if n, err := core.SavePortfolio(ctx, s); !IsErrorCode(err, ErrCodePersistence) || n.Level != NoticeWarning {
		t.Fatalf("expected persistence warning on save, got %+v %v", n, err)
	}
}

func TestSignInFailureIsGeneric(t *testing.T) {
	core := setupTestCore(t, newStubMarket())
	ctx := context.Background()
	s := core.Sessions().Create()
	n, err := core.SignIn(ctx, s, "nobody@example.com", "whatever")
	if !IsErrorCode(err, ErrCodeAuth) || n.Message != "sign-in failed" {
		t.Fatalf("expected generic auth failure, got %+v %v", n, err)
	}
	if s.Auth != nil {
		t.Fatalf("failed sign-in must not attach identity")
	}
}

func TestCompanyDetailUsesSessionView(t *testing.T) {
	md := newStubMarket()
	md.history["AAPL"] = []PricePoint{{Close: 1}}
	core := setupTestCore(t, md)
	ctx := context.Background()
	s := core.Sessions().Create()

	if _, err := core.CompanyDetail(ctx, s, "", ""); !IsErrorCode(err, ErrCodeNotFound) {
		t.Fatalf("expected not found on empty ledger, got %v", err)
	}
	_, _ = core.Dispatch(ctx, s, AddHolding{Ticker: "AAPL", Quantity: dec("1"), BuyPrice: dec("1")})
	_, _ = core.Dispatch(ctx, s, SelectTicker{Ticker: "AAPL"})
	d, err := core.CompanyDetail(ctx, s, "", "")
	if err != nil {
		t.Fatalf("company detail: %v", err)
	}
	if d.Period != DefaultPeriod || d.Holding.Ticker != "AAPL" || d.Fundamentals["Sector"] != "N/A" {
		t.Fatalf("unexpected detail %+v", d)
	}
}
