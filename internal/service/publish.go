package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/d60-Lab/home-timeline/internal/model"
)

var (
	ErrParentNotFound   = errors.New("in_reply_to post not found")
	ErrOriginalNotFound = errors.New("reblogged post not found")
	ErrReblogDirect     = errors.New("direct posts cannot be reblogged")
	ErrReplyReblog      = errors.New("a post cannot be both a reply and a reblog")
)

// PublishInput 发帖参数
type PublishInput struct {
	AuthorID    int64
	Text        string
	Visibility  model.Visibility
	InReplyToID *int64
	ReblogOfID  *int64
	Mentions    []int64
}

// Publisher 负责事务内写 posts + outbox
type Publisher struct{ db *gorm.DB }

func NewPublisher(db *gorm.DB) *Publisher { return &Publisher{db: db} }

// Publish 在一个事务内落地 Post、提及与 Outbox 事件，ID 由数据库分配
func (p *Publisher) Publish(ctx context.Context, in PublishInput) (*model.Post, error) {
	if in.InReplyToID != nil && in.ReblogOfID != nil {
		return nil, ErrReplyReblog
	}
	if in.Visibility == "" {
		in.Visibility = model.VisibilityPublic
	}
	now := time.Now()
	post := &model.Post{
		AccountID:  in.AuthorID,
		Visibility: in.Visibility,
		Text:       in.Text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.InReplyToID != nil {
			var parent model.Post
			if err := tx.First(&parent, *in.InReplyToID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrParentNotFound
				}
				return err
			}
			post.Reply = true
			post.InReplyToID = &parent.ID
			post.InReplyToAccountID = &parent.AccountID
		}
		if in.ReblogOfID != nil {
			var original model.Post
			if err := tx.First(&original, *in.ReblogOfID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrOriginalNotFound
				}
				return err
			}
			// 转发的转发指向最初的原帖
			if original.ReblogOfID != nil {
				var root model.Post
				if err := tx.First(&root, *original.ReblogOfID).Error; err != nil {
					return ErrOriginalNotFound
				}
				original = root
			}
			if original.IsDirect() {
				return ErrReblogDirect
			}
			post.ReblogOfID = &original.ID
		}

		if err := tx.Create(post).Error; err != nil {
			return err
		}
		for _, accountID := range lo.Uniq(in.Mentions) {
			m := &model.Mention{ID: uuid.New().String(), PostID: post.ID, AccountID: accountID, CreatedAt: now}
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		out := &model.Outbox{ID: uuid.New().String(), PostID: post.ID, AuthorID: in.AuthorID, CreatedAt: now, Status: model.OutboxPending}
		return tx.Create(out).Error
	})
	if err != nil {
		return nil, fmt.Errorf("publish post: %w", err)
	}
	return post, nil
}
