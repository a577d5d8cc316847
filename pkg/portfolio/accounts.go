package portfolio

import (
	"context"
	"fmt"
)

// SignIn authenticates and attaches the identity to the session. On failure
// the session is left exactly as it was.
func (c *Core) SignIn(ctx context.Context, s *SessionState, email, password string) (Notice, error) {
	return c.authenticate(ctx, s, email, password, c.identity.SignIn, "Logged in!")
}

// SignUp creates an account and signs the session into it.
func (c *Core) SignUp(ctx context.Context, s *SessionState, email, password string) (Notice, error) {
	return c.authenticate(ctx, s, email, password, c.identity.SignUp, "Account created!")
}

func (c *Core) authenticate(
	ctx context.Context,
	s *SessionState,
	email, password string,
	fn func(context.Context, string, string) (*AuthSession, error),
	okMsg string,
) (Notice, error) {
	auth, err := fn(ctx, email, password)
	if err != nil {
		return errorNotice(err), err
	}
	s.Lock()
	defer s.Unlock()
	s.Auth = auth
	c.recordOperation(ctx, s, OpSignIn, "", "", nil, nil)
	c.logger.Info("signed in", "session", s.ID, "account", auth.AccountID)
	return success(okMsg), nil
}

// SavePortfolio writes the session ledger to the account store.
func (c *Core) SavePortfolio(ctx context.Context, s *SessionState) (Notice, error) {
	s.Lock()
	defer s.Unlock()
	if !s.SignedIn() {
		err := WrapError(ErrCodeAuth, "Please log in to use these features.", ErrNotSignedIn)
		return errorNotice(err), err
	}
	holdings := s.Ledger.Holdings()
	if err := c.store.Save(c.accountContext(ctx, s), s.Auth.AccountID, holdings); err != nil {
		return warning("Could not save portfolio: " + UserMessage(err)), err
	}
	c.recordOperation(ctx, s, OpSave, "", fmt.Sprintf("%d holdings", len(holdings)), nil, nil)
	return success("Portfolio saved!"), nil
}

// LoadPortfolio replaces the session ledger with the saved one. A failed or
// empty load leaves the current ledger untouched.
func (c *Core) LoadPortfolio(ctx context.Context, s *SessionState) (Notice, error) {
	s.Lock()
	defer s.Unlock()
	if !s.SignedIn() {
		err := WrapError(ErrCodeAuth, "Please log in to use these features.", ErrNotSignedIn)
		return errorNotice(err), err
	}
	holdings, err := c.store.Load(c.accountContext(ctx, s), s.Auth.AccountID)
	if err != nil {
		return warning("Could not load portfolio: " + UserMessage(err)), err
	}
	if len(holdings) == 0 {
		return warning("No saved portfolio found."), nil
	}
	dropped := s.Ledger.Replace(holdings)
	s.View.ViewTicker = ""
	if s.View.ActiveTab == TabCompany {
		s.View.ActiveTab = TabOverview
	}
	c.recordOperation(ctx, s, OpLoad, "", fmt.Sprintf("%d holdings, %d dropped", s.Ledger.Len(), dropped), nil, nil)
	if dropped > 0 {
		return warning(fmt.Sprintf("Portfolio loaded; %d invalid rows ignored.", dropped)), nil
	}
	return success("Portfolio loaded!"), nil
}

func (c *Core) accountContext(ctx context.Context, s *SessionState) context.Context {
	if s.Auth != nil && s.Auth.IDToken != "" {
		return WithIDToken(ctx, s.Auth.IDToken)
	}
	return ctx
}
