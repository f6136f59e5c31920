package model

import "time"

// User is a registered account as seen by the session core
type User struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email,omitempty" bson:"email"`
	Avatar    string    `json:"avatar,omitempty" bson:"avatar"`
	Role      string    `json:"role,omitempty" bson:"role"` // student, teacher, interviewer, admin
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// UserProfile is the display identity attached to a connection
type UserProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Profile returns the display identity of u
func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}
