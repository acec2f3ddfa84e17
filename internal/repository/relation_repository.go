package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/home-timeline/internal/model"
)

// inChunk 单条 IN 查询的参数上限（sqlite 默认 999）
const inChunk = 500

// RelationRepository 屏蔽/静音/域名屏蔽，以及按观众批量判定的关系查询
type RelationRepository interface {
	Block(ctx context.Context, accountID, targetID int64) error
	Unblock(ctx context.Context, accountID, targetID int64) error
	Mute(ctx context.Context, accountID, targetID int64) error
	Unmute(ctx context.Context, accountID, targetID int64) error
	BlockDomain(ctx context.Context, accountID int64, domain string) error

	// BlockingAny viewers 中屏蔽了 targets 任一账号的
	BlockingAny(ctx context.Context, viewers, targets []int64) ([]int64, error)
	// MutingAny viewers 中静音了 targets 任一账号的
	MutingAny(ctx context.Context, viewers, targets []int64) ([]int64, error)
	// BlockedBy viewers 中被 accountID 屏蔽的
	BlockedBy(ctx context.Context, accountID int64, viewers []int64) ([]int64, error)
	// DomainBlocking viewers 中屏蔽了 domain 的
	DomainBlocking(ctx context.Context, viewers []int64, domain string) ([]int64, error)
	// OnBlockedDomains viewers 中所在域名被 accountID 屏蔽的
	OnBlockedDomains(ctx context.Context, accountID int64, viewers []int64) ([]int64, error)
	// FollowersAmong viewers 中关注了 targetID 的
	FollowersAmong(ctx context.Context, targetID int64, viewers []int64) ([]int64, error)
}

type relationRepository struct{ db *gorm.DB }

func NewRelationRepository(db *gorm.DB) RelationRepository { return &relationRepository{db: db} }

func (r *relationRepository) Block(ctx context.Context, accountID, targetID int64) error {
	b := &model.Block{ID: uuid.New().String(), AccountID: accountID, TargetAccountID: targetID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(b).Error
}

func (r *relationRepository) Unblock(ctx context.Context, accountID, targetID int64) error {
	return r.db.WithContext(ctx).
		Where("account_id = ? AND target_account_id = ?", accountID, targetID).
		Delete(&model.Block{}).Error
}

func (r *relationRepository) Mute(ctx context.Context, accountID, targetID int64) error {
	m := &model.Mute{ID: uuid.New().String(), AccountID: accountID, TargetAccountID: targetID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (r *relationRepository) Unmute(ctx context.Context, accountID, targetID int64) error {
	return r.db.WithContext(ctx).
		Where("account_id = ? AND target_account_id = ?", accountID, targetID).
		Delete(&model.Mute{}).Error
}

func (r *relationRepository) BlockDomain(ctx context.Context, accountID int64, domain string) error {
	d := &model.DomainBlock{ID: uuid.New().String(), AccountID: accountID, Domain: domain}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(d).Error
}

func (r *relationRepository) BlockingAny(ctx context.Context, viewers, targets []int64) ([]int64, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	return r.pluckChunked(viewers, func(chunk []int64) *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Block{}).
			Where("account_id IN ? AND target_account_id IN ?", chunk, targets)
	}, "account_id")
}

func (r *relationRepository) MutingAny(ctx context.Context, viewers, targets []int64) ([]int64, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	return r.pluckChunked(viewers, func(chunk []int64) *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Mute{}).
			Where("account_id IN ? AND target_account_id IN ?", chunk, targets)
	}, "account_id")
}

func (r *relationRepository) BlockedBy(ctx context.Context, accountID int64, viewers []int64) ([]int64, error) {
	return r.pluckChunked(viewers, func(chunk []int64) *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Block{}).
			Where("account_id = ? AND target_account_id IN ?", accountID, chunk)
	}, "target_account_id")
}

func (r *relationRepository) DomainBlocking(ctx context.Context, viewers []int64, domain string) ([]int64, error) {
	return r.pluckChunked(viewers, func(chunk []int64) *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.DomainBlock{}).
			Where("account_id IN ? AND domain = ?", chunk, domain)
	}, "account_id")
}

func (r *relationRepository) OnBlockedDomains(ctx context.Context, accountID int64, viewers []int64) ([]int64, error) {
	blocked := r.db.WithContext(ctx).Model(&model.DomainBlock{}).Select("domain").Where("account_id = ?", accountID)
	return r.pluckChunked(viewers, func(chunk []int64) *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Account{}).
			Where("id IN ? AND domain <> '' AND domain IN (?)", chunk, blocked)
	}, "id")
}

func (r *relationRepository) FollowersAmong(ctx context.Context, targetID int64, viewers []int64) ([]int64, error) {
	return r.pluckChunked(viewers, func(chunk []int64) *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Follow{}).
			Where("followee_id = ? AND follower_id IN ?", targetID, chunk)
	}, "follower_id")
}

// pluckChunked 将 viewers 分块查询后合并结果
func (r *relationRepository) pluckChunked(viewers []int64, query func(chunk []int64) *gorm.DB, column string) ([]int64, error) {
	if len(viewers) == 0 {
		return nil, nil
	}
	var out []int64
	for _, chunk := range lo.Chunk(viewers, inChunk) {
		var ids []int64
		if err := query(chunk).Pluck(column, &ids).Error; err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return lo.Uniq(out), nil
}
