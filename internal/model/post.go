package model

import (
	"time"

	"gorm.io/gorm"
)

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
)

// Post 帖子；ID 单调递增，同时作为时间线排序依据
type Post struct {
	ID                 int64      `gorm:"primaryKey"`
	AccountID          int64      `gorm:"not null;index:idx_post_account_id,priority:1"`
	Account            *Account   `gorm:"foreignKey:AccountID"`
	ReblogOfID         *int64     `gorm:"index"`
	Reblog             *Post      `gorm:"foreignKey:ReblogOfID"`
	Reply              bool       `gorm:"not null;default:false"`
	InReplyToID        *int64     `gorm:"index"`
	InReplyToAccountID *int64
	Visibility         Visibility `gorm:"type:varchar(16);not null;default:'public'"`
	Text               string     `gorm:"type:text"`
	Mentions           []Mention  `gorm:"foreignKey:PostID"`
	CreatedAt          time.Time  `gorm:"index"`
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (Post) TableName() string { return "posts" }

func (p *Post) IsReblog() bool { return p.ReblogOfID != nil }

func (p *Post) IsDirect() bool { return p.Visibility == VisibilityDirect }

// MentionedAccountIDs 被提及账号 ID（需预加载 Mentions）
func (p *Post) MentionedAccountIDs() []int64 {
	ids := make([]int64, 0, len(p.Mentions))
	for _, m := range p.Mentions {
		ids = append(ids, m.AccountID)
	}
	return ids
}
