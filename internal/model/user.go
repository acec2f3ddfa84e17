package model

import "time"

// User 本站登录用户，记录登录时间用于判断时间线活跃度
type User struct {
	ID              int64 `gorm:"primaryKey"`
	AccountID       int64 `gorm:"not null;uniqueIndex"`
	CurrentSignInAt *time.Time
	LastSignInAt    *time.Time `gorm:"index"`
	ConfirmedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (User) TableName() string { return "users" }
