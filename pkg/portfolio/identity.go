package portfolio

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultIdentityURL is the Firebase Identity Toolkit host.
const DefaultIdentityURL = "https://identitytoolkit.googleapis.com"

const minPasswordLength = 6

// Messages shown for any authentication failure. Upstream detail is logged,
// never returned.
const (
	msgSignInFailed = "sign-in failed"
	msgSignUpFailed = "sign-up failed"
)

// AuthSession is a signed-in identity.
type AuthSession struct {
	AccountID    string    `json:"email"`
	LocalID      string    `json:"localId"`
	IDToken      string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// IdentityProvider signs users in and up.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*AuthSession, error)
	SignUp(ctx context.Context, email, password string) (*AuthSession, error)
}

func authError(message string, err error) *Error {
	return WrapError(ErrCodeAuth, message, err)
}

// FirebaseOptions configures the Identity Toolkit client.
type FirebaseOptions struct {
	BaseURL     string
	APIKey      string
	Logger      *slog.Logger
	HTTPTimeout time.Duration
	HTTPClient  HTTPDoer
}

// FirebaseIdentity calls the Identity Toolkit password endpoints.
type FirebaseIdentity struct {
	baseURL string
	apiKey  string
	logger  *slog.Logger
	client  HTTPDoer
}

// NewFirebaseIdentity builds the client. APIKey is required.
func NewFirebaseIdentity(opts FirebaseOptions) (*FirebaseIdentity, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, NewError(ErrCodeInvalidInput, "firebase api key is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultDuration(opts.HTTPTimeout, 10*time.Second)}
	}
	return &FirebaseIdentity{
		baseURL: strings.TrimRight(defaultString(opts.BaseURL, DefaultIdentityURL), "/"),
		apiKey:  opts.APIKey,
		logger:  logger,
		client:  client,
	}, nil
}

func (f *FirebaseIdentity) SignIn(ctx context.Context, email, password string) (*AuthSession, error) {
	return f.call(ctx, "signInWithPassword", email, password, msgSignInFailed)
}

func (f *FirebaseIdentity) SignUp(ctx context.Context, email, password string) (*AuthSession, error) {
	return f.call(ctx, "signUp", email, password, msgSignUpFailed)
}

type firebaseAuthResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *FirebaseIdentity) call(ctx context.Context, action, email, password, failMsg string) (*AuthSession, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, authError(failMsg, errors.New("email and password are required"))
	}
	body, err := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, authError(failMsg, err)
	}
	u := fmt.Sprintf("%s/v1/accounts:%s?key=%s", f.baseURL, action, url.QueryEscape(f.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, authError(failMsg, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("identity request failed", "action", action, "err", err)
		return nil, authError(failMsg, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, authError(failMsg, err)
	}
	var payload firebaseAuthResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, authError(failMsg, err)
	}
	if resp.StatusCode != http.StatusOK || payload.Error != nil || payload.IDToken == "" {
		reason := fmt.Sprintf("http status %d", resp.StatusCode)
		if payload.Error != nil {
			reason = payload.Error.Message
		}
		f.logger.Warn("identity rejected", "action", action, "reason", reason)
		return nil, authError(failMsg, errors.New(reason))
	}

	session := &AuthSession{
		AccountID:    defaultString(payload.Email, email),
		LocalID:      payload.LocalID,
		IDToken:      payload.IDToken,
		RefreshToken: payload.RefreshToken,
	}
	if secs, err := strconv.Atoi(payload.ExpiresIn); err == nil {
		session.ExpiresAt = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return session, nil
}

// LocalIdentity stores bcrypt password hashes in sqlite. It is the default
// when no Firebase project is configured.
type LocalIdentity struct {
	db       *sql.DB
	logger   *slog.Logger
	tokenTTL time.Duration
	cost     int
}

// NewLocalIdentity wraps an initialized database handle.
func NewLocalIdentity(db *sql.DB, logger *slog.Logger) *LocalIdentity {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalIdentity{db: db, logger: logger, tokenTTL: time.Hour, cost: bcrypt.DefaultCost}
}

func (l *LocalIdentity) SignUp(ctx context.Context, email, password string) (*AuthSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, authError(msgSignUpFailed, errors.New("invalid email"))
	}
	if len(password) < minPasswordLength {
		return nil, authError(msgSignUpFailed, errors.New("password too short"))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return nil, authError(msgSignUpFailed, err)
	}
	localID := uuid.NewString()
	if _, err := l.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, local_id) VALUES (?, ?, ?)",
		email, string(hash), localID,
	); err != nil {
		l.logger.Warn("local sign-up rejected", "email", email, "err", err)
		return nil, authError(msgSignUpFailed, err)
	}
	l.logger.Info("local account created", "email", email)
	return l.session(email, localID), nil
}

func (l *LocalIdentity) SignIn(ctx context.Context, email, password string) (*AuthSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var hash, localID string
	err := l.db.QueryRowContext(ctx, "SELECT password_hash, local_id FROM users WHERE email = ?", email).Scan(&hash, &localID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			l.logger.Warn("local sign-in lookup failed", "err", err)
		}
		return nil, authError(msgSignInFailed, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, authError(msgSignInFailed, err)
	}
	return l.session(email, localID), nil
}

func (l *LocalIdentity) session(email, localID string) *AuthSession {
	return &AuthSession{
		AccountID: email,
		LocalID:   localID,
		IDToken:   uuid.NewString(),
		ExpiresAt: time.Now().Add(l.tokenTTL),
	}
}
