package model

import "time"

// Account 账号；Domain 为空表示本地账号
type Account struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"type:varchar(64);not null;index:idx_account_name_domain,unique"`
	Domain    string `gorm:"type:varchar(255);not null;default:'';index:idx_account_name_domain,unique"`
	Locked    bool   `gorm:"not null;default:false"`
	Silenced  bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Account) TableName() string { return "accounts" }

// Local 是否本站账号
func (a *Account) Local() bool { return a.Domain == "" }
