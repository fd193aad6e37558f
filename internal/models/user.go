package models

import "time"

const (
	RoleClient    = "client"
	RoleCounselor = "counselor"
	RoleAdmin     = "admin"
)

type User struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	Specialization *string   `json:"specialization,omitempty"`
	Bio            *string   `json:"bio,omitempty"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	AvailableSlots []string  `json:"available_slots,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// CounselorListing is the public view of a counselor. AvailableSlots holds
// the offered slots that are not currently booked.
type CounselorListing struct {
	ID             int64    `json:"id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Specialization string   `json:"specialization"`
	Bio            *string  `json:"bio,omitempty"`
	ProfilePicture *string  `json:"profile_picture,omitempty"`
	AvailableSlots []string `json:"available_slots"`
}
