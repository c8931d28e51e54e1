// Package auth регистрирует учётные записи, выполняет вход по паролю
// и через Google и выпускает сессионные JWT.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/oauth"
	"github.com/magabrotheeeer/article-insights/internal/lib/password"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// AccountRepository описывает контракт хранилища учётных записей.
type AccountRepository interface {
	CreateAccount(ctx context.Context, acc models.NewAccount) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
}

// TokenIssuer выпускает сессионные токены.
type TokenIssuer interface {
	GenerateToken(accountID, email string) (string, error)
}

// IdentityVerifier проверяет ID-токен внешнего провайдера.
type IdentityVerifier interface {
	Verify(idToken string) (*oauth.Identity, error)
}

// Session — результат успешного входа.
type Session struct {
	Token   string         `json:"token"`
	Account models.Account `json:"user"`
}

// Service отвечает за регистрацию и вход.
type Service struct {
	accounts   AccountRepository
	tokens     TokenIssuer
	verifier   IdentityVerifier
	trialLimit int64
	log        *slog.Logger
}

// New создаёт Service. verifier может быть nil, тогда вход через Google отключён.
func New(accounts AccountRepository, tokens TokenIssuer, verifier IdentityVerifier, trialLimit int64, log *slog.Logger) *Service {
	return &Service{
		accounts:   accounts,
		tokens:     tokens,
		verifier:   verifier,
		trialLimit: trialLimit,
		log:        log,
	}
}

// Register создаёт пробную учётную запись с паролем и открывает сессию.
func (s *Service) Register(ctx context.Context, email, name, rawPassword string) (*Session, error) {
	const op = "auth.Register"

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	acc, err := s.accounts.CreateAccount(ctx, models.NewAccount{
		Email:        strings.TrimSpace(email),
		Name:         name,
		PasswordHash: hashed,
		TokenLimit:   s.trialLimit,
	})
	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Wrap(apperr.Conflict, "account with this email already exists", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account registered", slog.String("op", op), sl.Account(acc.ID))
	return s.session(op, acc)
}

// Login проверяет пароль и открывает сессию.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*Session, error) {
	const op = "auth.Login"

	acc, err := s.accounts.FindAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.Unauthenticated, "invalid credentials")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Compare(acc.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrNoPassword) {
			return nil, apperr.New(apperr.Unauthenticated, "account uses external sign-in")
		}
		return nil, apperr.New(apperr.Unauthenticated, "invalid credentials")
	}
	return s.session(op, acc)
}

// OAuthSignIn проверяет ID-токен Google. При первом входе создаётся
// пробная учётная запись.
func (s *Service) OAuthSignIn(ctx context.Context, idToken string) (*Session, error) {
	const op = "auth.OAuthSignIn"

	if s.verifier == nil {
		return nil, apperr.New(apperr.Forbidden, "external sign-in is not configured")
	}
	identity, err := s.verifier.Verify(idToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid id token", err)
	}

	acc, err := s.accounts.FindAccountByEmail(ctx, identity.Email)
	switch {
	case err == nil:
	case apperr.Is(err, apperr.NotFound):
		acc, err = s.accounts.CreateAccount(ctx, models.NewAccount{
			Email:      identity.Email,
			Name:       identity.Name,
			Image:      identity.Picture,
			TokenLimit: s.trialLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("account created on first sign-in", slog.String("op", op), sl.Account(acc.ID))
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.session(op, acc)
}

func (s *Service) session(op string, acc *models.Account) (*Session, error) {
	token, err := s.tokens.GenerateToken(acc.ID, acc.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Session{Token: token, Account: *acc}, nil
}
