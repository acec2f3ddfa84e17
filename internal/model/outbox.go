package model

import "time"

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
	OutboxFailed     = "failed"
)

// Outbox 帖子扇出事件外发盒，与帖子在同一事务内写入
type Outbox struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	PostID      int64     `gorm:"uniqueIndex"`
	AuthorID    int64     `gorm:"index:idx_outbox_author"`
	CreatedAt   time.Time `gorm:"index"`
	Status      string    `gorm:"type:varchar(16);index"` // pending, processing, done, failed
	Attempts    int
	LastError   string `gorm:"type:text"`
	ProcessedAt *time.Time
	FanoutCount int64
	ClaimToken  string     `gorm:"type:varchar(36);not null;default:''"`
	ClaimedAt   *time.Time `gorm:"index"`
}

func (Outbox) TableName() string { return "outbox" }
