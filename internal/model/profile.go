package model

import "time"

// Role is the portal role assigned to a profile.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleAssemblyman Role = "assemblyman"
	RoleConstituent Role = "constituent"
)

// CanSendSMS reports whether the role is allowed to dispatch SMS to
// constituents. This is an authorization gate: a valid identity with an
// under-privileged role must still be rejected.
func (r Role) CanSendSMS() bool {
	return r == RoleAdmin || r == RoleAssemblyman
}

// Profile is the portal-side record of a user. Profiles are written by the
// portal's registration flow; this service only reads them for authorization.
type Profile struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	UserID    string    `json:"user_id"    gorm:"column:user_id;not null;uniqueIndex"`
	FullName  string    `json:"full_name"  gorm:"column:full_name"`
	Phone     string    `json:"phone"      gorm:"column:phone"`
	Role      Role      `json:"role"       gorm:"column:role;not null;default:constituent"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Profile) TableName() string { return "profiles" }
