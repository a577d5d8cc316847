package portfolio

import (
	"strings"
	"sync"
	"time"
)

// Tab is a dashboard view.
type Tab string

const (
	TabOverview  Tab = "overview"
	TabAnalytics Tab = "analytics"
	TabCompany   Tab = "company"
	TabDividends Tab = "dividends"
	TabSettings  Tab = "settings"
)

// ParseTab accepts one of the known tabs, case-insensitively.
func ParseTab(s string) (Tab, error) {
	switch t := Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case TabOverview, TabAnalytics, TabCompany, TabDividends, TabSettings:
		return t, nil
	}
	return "", validationError(ErrInvalidTab)
}

// ViewState is what the user is looking at, kept apart from the ledger.
type ViewState struct {
	ActiveTab     Tab    `json:"activeTab"`
	ViewTicker    string `json:"viewTicker,omitempty"`
	HistoryPeriod Period `json:"historyPeriod"`
}

// DefaultViewState is the view of a fresh session.
func DefaultViewState() ViewState {
	return ViewState{ActiveTab: TabOverview, HistoryPeriod: DefaultPeriod}
}

// SessionState is everything one browser session owns. Requests against a
// session run one at a time under mu.
type SessionState struct {
	ID       string
	Ledger   *Ledger
	View     ViewState
	Auth     *AuthSession
	Created  time.Time
	LastSeen time.Time

	mu sync.Mutex
}

func newSessionState(id string, now time.Time) *SessionState {
	return &SessionState{
		ID:       id,
		Ledger:   NewLedger(),
		View:     DefaultViewState(),
		Created:  now,
		LastSeen: now,
	}
}

// Lock serializes work on the session.
func (s *SessionState) Lock() { s.mu.Lock() }

func (s *SessionState) Unlock() { s.mu.Unlock() }

// SignedIn reports whether an identity is attached.
func (s *SessionState) SignedIn() bool {
	return s.Auth != nil && s.Auth.AccountID != ""
}

// Notice levels.
const (
	NoticeSuccess = "success"
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is the user-visible outcome of a command.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func success(msg string) Notice { return Notice{Level: NoticeSuccess, Message: msg} }
func info(msg string) Notice    { return Notice{Level: NoticeInfo, Message: msg} }
func warning(msg string) Notice { return Notice{Level: NoticeWarning, Message: msg} }

func errorNotice(err error) Notice {
	return Notice{Level: NoticeError, Message: UserMessage(err)}
}
