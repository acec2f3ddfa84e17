package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/home-timeline/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	// GetByAccount 不存在时返回 (nil, nil)
	GetByAccount(ctx context.Context, accountID int64) (*model.User, error)
	// RecordSignIn 记录一次登录：last = 上一次 current（为空则取 now），current = now
	RecordSignIn(ctx context.Context, accountID int64, now time.Time) (*model.User, error)
	// FeedExpiredAccountIDs 已确认且最近登录早于 before 的账号，按 account_id 升序游标分页
	FeedExpiredAccountIDs(ctx context.Context, before time.Time, afterAccountID int64, limit int) ([]int64, error)
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepository) GetByAccount(ctx context.Context, accountID int64) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) RecordSignIn(ctx context.Context, accountID int64, now time.Time) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).First(&u).Error; err != nil {
			return err
		}
		last := now
		if u.CurrentSignInAt != nil {
			last = *u.CurrentSignInAt
		}
		u.LastSignInAt = &last
		u.CurrentSignInAt = &now
		return tx.Model(&u).Updates(map[string]any{
			"last_sign_in_at":    last,
			"current_sign_in_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FeedExpiredAccountIDs(ctx context.Context, before time.Time, afterAccountID int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("confirmed_at IS NOT NULL AND current_sign_in_at < ? AND account_id > ?", before, afterAccountID).
		Order("account_id").
		Limit(limit).
		Pluck("account_id", &ids).Error
	return ids, err
}
