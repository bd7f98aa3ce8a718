package entity

import "time"

// Account учётная запись агронома
type Account struct {
	ID           string
	Email        string
	Name         string
	Phone        string // пусто, если не указан
	PasswordHash string
	ConfirmedAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Confirmed сообщает, подтверждена ли почта
func (a *Account) Confirmed() bool {
	return !a.ConfirmedAt.IsZero()
}
