package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// accountModel строка таблицы accounts
type accountModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"column:email;size:255;uniqueIndex"`
	Name         string `gorm:"column:name;size:255"`
	Phone        string `gorm:"column:phone;size:32;not null;default:''"`
	PasswordHash string `gorm:"column:password_hash;size:255"`
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName задаёт имя таблицы
func (accountModel) TableName() string {
	return "accounts"
}

// AccountRepository аккаунты в Postgres
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository создаёт репозиторий
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&accountModel{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return port.ErrEmailTaken
		}
		model := fromAccount(account)
		return tx.Create(&model).Error
	})
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *AccountRepository) Update(ctx context.Context, account *entity.Account) error {
	model := fromAccount(account)
	res := r.db.WithContext(ctx).Model(&accountModel{}).Where("id = ?", account.ID).Updates(map[string]any{
		"name":          model.Name,
		"phone":         model.Phone,
		"password_hash": model.PasswordHash,
		"confirmed_at":  model.ConfirmedAt,
		"updated_at":    model.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return port.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) first(ctx context.Context, query string, arg string) (*entity.Account, error) {
	var model accountModel
	err := r.db.WithContext(ctx).First(&model, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, port.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.toDomain(), nil
}

func (m accountModel) toDomain() *entity.Account {
	acc := &entity.Account{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		Phone:        m.Phone,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.ConfirmedAt != nil {
		acc.ConfirmedAt = m.ConfirmedAt.UTC()
	}
	return acc
}

func fromAccount(a *entity.Account) accountModel {
	m := accountModel{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		Phone:        a.Phone,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if !a.ConfirmedAt.IsZero() {
		t := a.ConfirmedAt
		m.ConfirmedAt = &t
	}
	return m
}

var _ port.AccountRepository = (*AccountRepository)(nil)
