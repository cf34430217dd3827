package models

import "time"

// UserSession backs the __session cookie. Tokens carry the session id,
// so revoking a row here kills the token even before its JWT expiry;
// role changes rely on this to invalidate stale role claims.
type UserSession struct {
	Base
	UserID    string     `json:"user_id"    gorm:"index;not null"`
	IP        string     `json:"ip"`
	UA        string     `json:"ua"         gorm:"type:text"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	RevokedAt *time.Time `json:"revoked_at" gorm:"index"`
}

func (UserSession) TableName() string { return "user_sessions" }
