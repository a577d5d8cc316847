package portfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFirestoreURL is the Firestore REST host.
const DefaultFirestoreURL = "https://firestore.googleapis.com"

// FirestoreOptions configures the Firestore-backed account store.
type FirestoreOptions struct {
	BaseURL     string
	ProjectID   string
	APIKey      string
	Collection  string
	Logger      *slog.Logger
	HTTPTimeout time.Duration
	HTTPClient  HTTPDoer
}

// FirestoreStore keeps each account's ledger as one string field of a
// Firestore document.
type FirestoreStore struct {
	baseURL    string
	projectID  string
	apiKey     string
	collection string
	logger     *slog.Logger
	client     HTTPDoer
}

// NewFirestoreStore builds the store. ProjectID is required.
func NewFirestoreStore(opts FirestoreOptions) (*FirestoreStore, error) {
	if strings.TrimSpace(opts.ProjectID) == "" {
		return nil, NewError(ErrCodeInvalidInput, "firestore project id is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultDuration(opts.HTTPTimeout, 10*time.Second)}
	}
	return &FirestoreStore{
		baseURL:    strings.TrimRight(defaultString(opts.BaseURL, DefaultFirestoreURL), "/"),
		projectID:  opts.ProjectID,
		apiKey:     opts.APIKey,
		collection: defaultString(opts.Collection, "portfolios"),
		logger:     logger,
		client:     client,
	}, nil
}

type firestoreDocument struct {
	Fields struct {
		Holdings struct {
			StringValue *string `json:"stringValue"`
		} `json:"holdings"`
	} `json:"fields"`
}

func (s *FirestoreStore) documentURL(accountID string) string {
	u := fmt.Sprintf("%s/v1/projects/%s/databases/(default)/documents/%s/%s",
		s.baseURL, url.PathEscape(s.projectID), s.collection, url.PathEscape(AccountKey(accountID)))
	if s.apiKey != "" {
		u += "?key=" + url.QueryEscape(s.apiKey)
	}
	return u
}

// Save overwrites the account document with the full ledger.
func (s *FirestoreStore) Save(ctx context.Context, accountID string, holdings []Holding) error {
	if AccountKey(accountID) == "" {
		return WrapError(ErrCodePersistence, "save failed", ErrNotSignedIn)
	}
	payload, err := EncodeHoldings(holdings)
	if err != nil {
		return WrapError(ErrCodePersistence, "save failed", err)
	}
	body, err := json.Marshal(map[string]any{
		"fields": map[string]any{
			"holdings": map[string]string{"stringValue": payload},
		},
	})
	if err != nil {
		return WrapError(ErrCodePersistence, "save failed", err)
	}
	resp, err := s.do(ctx, http.MethodPatch, s.documentURL(accountID), body)
	if err != nil {
		s.logger.Warn("firestore save failed", "account", AccountKey(accountID), "err", err)
		return WrapError(ErrCodePersistence, "save failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("http status %d", resp.StatusCode)
		s.logger.Warn("firestore save failed", "account", AccountKey(accountID), "err", err)
		return WrapError(ErrCodePersistence, "save failed", err)
	}
	s.logger.Info("portfolio saved", "account", AccountKey(accountID), "holdings", len(holdings))
	return nil
}

// Load reads the account document. A missing document or field yields nil, nil.
func (s *FirestoreStore) Load(ctx context.Context, accountID string) ([]Holding, error) {
	if AccountKey(accountID) == "" {
		return nil, WrapError(ErrCodePersistence, "load failed", ErrNotSignedIn)
	}
	resp, err := s.do(ctx, http.MethodGet, s.documentURL(accountID), nil)
	if err != nil {
		s.logger.Warn("firestore load failed", "account", AccountKey(accountID), "err", err)
		return nil, WrapError(ErrCodePersistence, "load failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("http status %d", resp.StatusCode)
		s.logger.Warn("firestore load failed", "account", AccountKey(accountID), "err", err)
		return nil, WrapError(ErrCodePersistence, "load failed", err)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, WrapError(ErrCodePersistence, "load failed", err)
	}
	var doc firestoreDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, WrapError(ErrCodePersistence, "load failed", err)
	}
	if doc.Fields.Holdings.StringValue == nil {
		return nil, nil
	}
	holdings, err := DecodeHoldings(*doc.Fields.Holdings.StringValue)
	if err != nil {
		return nil, WrapError(ErrCodePersistence, "load failed", err)
	}
	return holdings, nil
}

func (s *FirestoreStore) do(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := idTokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.client.Do(req)
}
