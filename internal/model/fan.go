package model

import "time"

// Fan 粉丝关系（B 的粉丝是 A）冗余自 Follow，扇出时按页读取
type Fan struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	AccountID int64  `gorm:"index:idx_fan_account;index:idx_fan_pair,unique;not null"`
	FanID     int64  `gorm:"not null;index:idx_fan_pair,unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Fan) TableName() string { return "fans" }
