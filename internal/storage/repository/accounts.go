package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/article-insights/internal/models"
)

const accountColumns = `id, email, name, image, password_hash, tier, tokens_used, token_limit,
	subscription_status, subscription_expires_at, payment_reference, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a         models.Account
		tier      string
		status    string
		expiresAt sql.NullTime
		reference sql.NullString
		updatedAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Image, &a.PasswordHash, &tier,
		&a.TokensUsed, &a.TokenLimit, &status, &expiresAt, &reference, &a.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if a.Tier, err = models.ParseTier(tier); err != nil {
		return nil, err
	}
	if a.SubscriptionStatus, err = models.ParseSubscriptionStatus(status); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		a.SubscriptionExpiresAt = &expiresAt.Time
	}
	if reference.Valid {
		a.PaymentReference = &reference.String
	}
	if updatedAt.Valid {
		a.UpdatedAt = &updatedAt.Time
	}
	return &a, nil
}

// CreateAccount создаёт учётную запись пробного уровня с нулевым расходом токенов.
func (s *Storage) CreateAccount(ctx context.Context, acc models.NewAccount) (*models.Account, error) {
	const op = "storage.CreateAccount"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO accounts (email, name, image, password_hash, tier, tokens_used, token_limit)
			  VALUES ($1, $2, $3, $4, $5, 0, $6)
			  RETURNING ` + accountColumns
	row := s.DB.QueryRowContext(ctx, query,
		acc.Email, acc.Name, acc.Image, acc.PasswordHash, string(models.TierTrial), acc.TokenLimit)
	created, err := scanAccount(row)
	if err != nil {
		return nil, mapError(op, err)
	}
	return created, nil
}

// GetAccount возвращает учётную запись по ID.
func (s *Storage) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	const op = "storage.GetAccount"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query, accountID))
	if err != nil {
		return nil, mapError(op, err)
	}
	return acc, nil
}

// FindAccountByEmail возвращает учётную запись по email.
func (s *Storage) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.FindAccountByEmail"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, mapError(op, err)
	}
	return acc, nil
}

// UpdateAccount применяет частичное обновление и возвращает новую версию записи.
func (s *Storage) UpdateAccount(ctx context.Context, accountID string, patch models.AccountPatch) (*models.Account, error) {
	const op = "storage.UpdateAccount"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.GetAccount(ctx, accountID)
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Tier != nil {
		add("tier", string(*patch.Tier))
	}
	if patch.TokensUsed != nil {
		add("tokens_used", *patch.TokensUsed)
	}
	if patch.TokenLimit != nil {
		add("token_limit", *patch.TokenLimit)
	}
	if patch.SubscriptionStatus != nil {
		add("subscription_status", string(*patch.SubscriptionStatus))
	}
	if patch.SubscriptionExpiresAt != nil {
		add("subscription_expires_at", *patch.SubscriptionExpiresAt)
	}
	if patch.ClearPaymentReference {
		sets = append(sets, "payment_reference = NULL")
	} else if patch.PaymentReference != nil {
		add("payment_reference", *patch.PaymentReference)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, accountID)

	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), accountColumns)
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(op, err)
	}
	return acc, nil
}

// AddTokensUsed увеличивает расход токенов одним выражением, параллельные
// вызовы не теряют приращений.
func (s *Storage) AddTokensUsed(ctx context.Context, accountID string, tokens int64) error {
	const op = "storage.AddTokensUsed"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	query := `UPDATE accounts
			  SET tokens_used = tokens_used + $1, updated_at = NOW()
			  WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, tokens, accountID)
	if err != nil {
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return mapError(op, sql.ErrNoRows)
	}
	return nil
}

// AddTokensUsedWithinLimit увеличивает расход, только если он не превысит лимит.
// Отсутствующая учётная запись даёт NotFound, невыполненное условие false.
func (s *Storage) AddTokensUsedWithinLimit(ctx context.Context, accountID string, tokens int64) (bool, error) {
	const op = "storage.AddTokensUsedWithinLimit"
	if err := checkContext(ctx, op); err != nil {
		return false, err
	}

	query := `UPDATE accounts
			  SET tokens_used = tokens_used + $1, updated_at = NOW()
			  WHERE id = $2 AND tokens_used + $1 <= token_limit
			  RETURNING tokens_used`
	var used int64
	err := s.DB.QueryRowContext(ctx, query, tokens, accountID).Scan(&used)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, mapError(op, err)
	}

	var exists bool
	if err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return false, mapError(op, err)
	}
	if !exists {
		return false, mapError(op, sql.ErrNoRows)
	}
	return false, nil
}

// FindAccountsExpiringBetween возвращает активные оплаченные учётные записи,
// срок подписки которых попадает в [from, to).
func (s *Storage) FindAccountsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Account, error) {
	const op = "storage.FindAccountsExpiringBetween"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts
			  WHERE tier = $1 AND subscription_status = $2
			    AND subscription_expires_at >= $3 AND subscription_expires_at < $4
			  ORDER BY subscription_expires_at`
	rows, err := s.DB.QueryContext(ctx, query, string(models.TierPaid), string(models.StatusActive), from, to)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return accounts, nil
}
