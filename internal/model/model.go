package model

// All 需要迁移的全部模型
func All() []any {
	return []any{
		&Account{},
		&User{},
		&Post{},
		&Mention{},
		&Follow{},
		&Fan{},
		&Block{},
		&Mute{},
		&DomainBlock{},
		&Outbox{},
	}
}
