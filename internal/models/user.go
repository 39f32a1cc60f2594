// internal/models/user.go
package models

import (
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username        string         `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email           string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string         `json:"-" gorm:"size:255;not null"`
	Status          UserStatus     `json:"status" gorm:"type:varchar(20);default:'active'"`
	WishlistCardIDs pq.StringArray `json:"wishlist_card_ids" gorm:"type:text[]"`
	ProfileData     JSONB          `json:"profile_data" gorm:"type:jsonb"`
	LastLoginAt     *time.Time     `json:"last_login_at"`

	// Relationships
	InitiatedTrades []Trade       `json:"initiated_trades,omitempty" gorm:"foreignKey:InitiatorUserID"`
	Reviews         []TradeReview `json:"reviews,omitempty" gorm:"foreignKey:ReviewerUserID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
