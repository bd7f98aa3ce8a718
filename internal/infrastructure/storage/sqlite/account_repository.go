package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

var _ port.AccountRepository = (*AccountRepository)(nil)

// AccountRepository аккаунты в SQLite
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository создаёт репозиторий поверх открытой базы
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create добавляет аккаунт. Для занятой почты port.ErrEmailTaken
func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	return RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		exec := GetExecutor(txCtx, r.db)

		var exists int
		err := exec.QueryRowContext(txCtx, "SELECT COUNT(1) FROM accounts WHERE email = ?", account.Email).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if exists > 0 {
			return port.ErrEmailTaken
		}

		_, err = exec.ExecContext(txCtx, `
			INSERT INTO accounts (id, email, name, phone, password_hash, confirmed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			account.ID,
			account.Email,
			account.Name,
			account.Phone,
			account.PasswordHash,
			nullableMillis(account.ConfirmedAt),
			account.CreatedAt.UTC().UnixMilli(),
			account.UpdatedAt.UTC().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}
		return nil
	})
}

const selectAccount = `
	SELECT id, email, name, phone, password_hash, confirmed_at, created_at, updated_at
	FROM accounts
`

// GetByID находит аккаунт по ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.getOne(ctx, selectAccount+" WHERE id = ?", id)
}

// GetByEmail находит аккаунт по почте
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.getOne(ctx, selectAccount+" WHERE email = ?", email)
}

// Update сохраняет профиль, хеш пароля и отметку подтверждения
func (r *AccountRepository) Update(ctx context.Context, account *entity.Account) error {
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, phone = ?, password_hash = ?, confirmed_at = ?, updated_at = ?
		WHERE id = ?`,
		account.Name,
		account.Phone,
		account.PasswordHash,
		nullableMillis(account.ConfirmedAt),
		account.UpdatedAt.UTC().UnixMilli(),
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return port.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg string) (*entity.Account, error) {
	var (
		acc         entity.Account
		confirmedAt sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&acc.ID,
		&acc.Email,
		&acc.Name,
		&acc.Phone,
		&acc.PasswordHash,
		&confirmedAt,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if confirmedAt.Valid {
		acc.ConfirmedAt = time.UnixMilli(confirmedAt.Int64).UTC()
	}
	acc.CreatedAt = time.UnixMilli(createdAt).UTC()
	acc.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &acc, nil
}

func nullableMillis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().UnixMilli()
}
