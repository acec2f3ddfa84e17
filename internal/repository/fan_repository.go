package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/home-timeline/internal/model"
)

type FanRepository interface {
	Create(ctx context.Context, accountID, fanID int64) error
	Delete(ctx context.Context, accountID, fanID int64) error
	ListFans(ctx context.Context, accountID int64, offset, limit int) ([]*model.Fan, error)
	// FanIDsAfter 按 fan_id 升序游标分页，扇出时遍历全部粉丝
	FanIDsAfter(ctx context.Context, accountID, afterFanID int64, limit int) ([]int64, error)
}

type fanRepository struct{ db *gorm.DB }

func NewFanRepository(db *gorm.DB) FanRepository { return &fanRepository{db: db} }

func (r *fanRepository) Create(ctx context.Context, accountID, fanID int64) error {
	f := &model.Fan{ID: uuid.New().String(), AccountID: accountID, FanID: fanID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *fanRepository) Delete(ctx context.Context, accountID, fanID int64) error {
	return r.db.WithContext(ctx).Where("account_id = ? AND fan_id = ?", accountID, fanID).Delete(&model.Fan{}).Error
}

func (r *fanRepository) ListFans(ctx context.Context, accountID int64, offset, limit int) ([]*model.Fan, error) {
	var res []*model.Fan
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("created_at").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *fanRepository) FanIDsAfter(ctx context.Context, accountID, afterFanID int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.Fan{}).
		Where("account_id = ? AND fan_id > ?", accountID, afterFanID).
		Order("fan_id").
		Limit(limit).
		Pluck("fan_id", &ids).Error
	return ids, err
}
