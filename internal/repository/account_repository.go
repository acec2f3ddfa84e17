package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/home-timeline/internal/model"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository interface {
	Create(ctx context.Context, a *model.Account) error
	Get(ctx context.Context, id int64) (*model.Account, error)
	SetSilenced(ctx context.Context, id int64, silenced bool) error
}

type accountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &accountRepository{db: db} }

func (r *accountRepository) Create(ctx context.Context, a *model.Account) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *accountRepository) Get(ctx context.Context, id int64) (*model.Account, error) {
	var a model.Account
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) SetSilenced(ctx context.Context, id int64, silenced bool) error {
	return r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).Update("silenced", silenced).Error
}
