package model

import "time"

// 認証ユーザーに紐づく顧客アカウント。
// UserID は認証基盤（JWT の sub）のID。
type CustomerAccount struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	UserID        int64     `gorm:"not null;uniqueIndex"`
	Email         string    `gorm:"type:varchar(255);not null"`
	PhoneNumber   string    `gorm:"type:varchar(15)"`
	StreetAddress string    `gorm:"type:text"`
	City          string    `gorm:"type:varchar(1000)"`
	Region        string    `gorm:"type:varchar(1000)"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime"`
}
