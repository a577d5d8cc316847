package portfolio

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestCore opens a Core on a temp database with the given market data.
func setupTestCore(t *testing.T, md MarketData) *Core {
	t.Helper()
	core, err := OpenWithOptions(Options{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: testLogger(),
		Market: md,
	})
	if err != nil {
		t.Fatalf("failed to open test core: %v", err)
	}
	if li, ok := core.identity.(*LocalIdentity); ok {
		li.cost = bcrypt.MinCost
	}
	t.Cleanup(func() { core.Close() })
	return core
}

func newStubMarket() *stubMarket {
	return &stubMarket{
		stubQuoter: stubQuoter{
			prices: map[string]float64{"AAPL": 170, "MSFT": 300, "KO": 60},
			names:  map[string]string{"AAPL": "Apple Inc.", "MSFT": "Microsoft Corporation"},
		},
		fundamentals: map[string]Fundamentals{},
		history:      map[string][]PricePoint{},
	}
}
