package model

import "time"

// Block 屏蔽（A 屏蔽 B）
type Block struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	AccountID       int64  `gorm:"not null;index:idx_block_pair,unique"`
	TargetAccountID int64  `gorm:"not null;index:idx_block_pair,unique;index"`
	CreatedAt       time.Time
}

func (Block) TableName() string { return "blocks" }

// Mute 静音（A 静音 B），只影响 A 的时间线
type Mute struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	AccountID       int64  `gorm:"not null;index:idx_mute_pair,unique"`
	TargetAccountID int64  `gorm:"not null;index:idx_mute_pair,unique;index"`
	CreatedAt       time.Time
}

func (Mute) TableName() string { return "mutes" }

// DomainBlock 账号对整个域名的屏蔽
type DomainBlock struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	AccountID int64  `gorm:"not null;index:idx_domain_block_pair,unique"`
	Domain    string `gorm:"type:varchar(255);not null;index:idx_domain_block_pair,unique;index"`
	CreatedAt time.Time
}

func (DomainBlock) TableName() string { return "account_domain_blocks" }
