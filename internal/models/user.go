package models

import "time"

// Role values for UserModel.
const (
	RoleFaculty = "faculty"
	RoleHod     = "hod"
	RoleAdmin   = "admin"
)

// UserModel is a portal account: faculty, HoD, or admin.
// Anonymous explorer visitors have no account at all.
type UserModel struct {
	Base
	Username      string     `json:"username"   gorm:"uniqueIndex;not null"`
	Name          string     `json:"name"`
	Mail          string     `json:"mail"       gorm:"index"`
	Avatar        string     `json:"avatar"`
	Password      string     `json:"-"          gorm:"not null"`
	Role          string     `json:"role"       gorm:"index;default:'faculty';not null"`
	Department    string     `json:"department" gorm:"index"` // claim, required for hod
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }

// ValidRole reports whether r is a recognised account role.
func ValidRole(r string) bool {
	return r == RoleFaculty || r == RoleHod || r == RoleAdmin
}
