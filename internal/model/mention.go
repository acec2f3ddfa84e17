package model

import "time"

type Mention struct {
	ID        string   `gorm:"primaryKey;type:varchar(36)"`
	PostID    int64    `gorm:"not null;index:idx_mention_pair,unique"`
	AccountID int64    `gorm:"not null;index:idx_mention_pair,unique;index"`
	Account   *Account `gorm:"foreignKey:AccountID"`
	CreatedAt time.Time
}

func (Mention) TableName() string { return "mentions" }
