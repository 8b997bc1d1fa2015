package models

import "time"

type User struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Username    string `gorm:"uniqueIndex;not null"`
	Password    string `gorm:"not null"`
	Role        string `gorm:"not null;default:'user'"`
	Level       int    `gorm:"not null;default:1"`
	XP          int64  `gorm:"not null;default:0"`
	IsDeveloper bool   `gorm:"not null;default:false"`
	IsActive    bool   `gorm:"not null;default:true"`
	Version     int    `gorm:"default:1"`
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
