package model

import "time"

// Mode is the room-wide edit policy
type Mode string

const (
	ModeTeaching  Mode = "teaching"  // only the owner edits
	ModeInterview Mode = "interview" // everyone in the room edits
)

// Valid reports whether m is one of the two room modes
func (m Mode) Valid() bool {
	return m == ModeTeaching || m == ModeInterview
}

// OwnerRole is the role the owner holds over the room
type OwnerRole string

const (
	OwnerRoleTeacher     OwnerRole = "teacher"
	OwnerRoleInterviewer OwnerRole = "interviewer"
)

// Valid reports whether r is a known owner role
func (r OwnerRole) Valid() bool {
	return r == OwnerRoleTeacher || r == OwnerRoleInterviewer
}

// ParticipantRole is the role of a connection inside a room
type ParticipantRole string

const (
	RoleOwner       ParticipantRole = "owner"
	RoleParticipant ParticipantRole = "participant"
)

const (
	DefaultCode     = "// Start coding here..."
	DefaultLanguage = "javascript"
)

// Participant is one live connection projected onto the room document
type Participant struct {
	UserID       string          `json:"userId" bson:"userId"`
	Name         string          `json:"name,omitempty" bson:"name,omitempty"`
	Avatar       string          `json:"avatar,omitempty" bson:"avatar,omitempty"`
	ConnectionID string          `json:"connectionId" bson:"connectionId"`
	Role         ParticipantRole `json:"role" bson:"role"`
	JoinedAt     time.Time       `json:"joinedAt" bson:"joinedAt"`
}

// Room is the durable collaborative session document
type Room struct {
	RoomID              string        `json:"roomId" bson:"roomId"`
	Name                string        `json:"name" bson:"name"`
	Description         string        `json:"description" bson:"description"`
	OwnerID             string        `json:"ownerId" bson:"ownerId"`
	OwnerRole           OwnerRole     `json:"ownerRole" bson:"ownerRole"`
	AllowedParticipants []string      `json:"allowedParticipants" bson:"allowedParticipants"`
	CurrentParticipants []Participant `json:"currentParticipants" bson:"currentParticipants"`
	Mode                Mode          `json:"mode" bson:"mode"`
	Code                string        `json:"code" bson:"code"`
	Language            string        `json:"language" bson:"language"`

	// Problem statement shown next to the editor
	ProblemTitle       string `json:"problemTitle" bson:"problemTitle"`
	ProblemDescription string `json:"problemDescription" bson:"problemDescription"`
	TimeComplexity     string `json:"timeComplexity" bson:"timeComplexity"`
	SpaceComplexity    string `json:"spaceComplexity" bson:"spaceComplexity"`

	IsActive    bool      `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated" bson:"lastUpdated"`
}

// IsOwner reports whether userID owns the room
func (r *Room) IsOwner(userID string) bool {
	return userID != "" && r.OwnerID == userID
}

// IsAllowed reports whether userID may join the room
func (r *Room) IsAllowed(userID string) bool {
	if r.IsOwner(userID) {
		return true
	}
	for _, id := range r.AllowedParticipants {
		if id == userID {
			return true
		}
	}
	return false
}

// RoleOf returns the participant role userID would hold in the room
func (r *Room) RoleOf(userID string) ParticipantRole {
	if r.IsOwner(userID) {
		return RoleOwner
	}
	return RoleParticipant
}

// ApplyDefaults fills unset fields of a newly created room
func (r *Room) ApplyDefaults(now time.Time) {
	if r.Mode == "" {
		r.Mode = ModeTeaching
	}
	if r.Code == "" {
		r.Code = DefaultCode
	}
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	if r.AllowedParticipants == nil {
		r.AllowedParticipants = []string{}
	}
	if r.CurrentParticipants == nil {
		r.CurrentParticipants = []Participant{}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.LastUpdated = now
	r.IsActive = true
}

// RoomUpdate is a partial update of a room document. Nil fields are left untouched.
type RoomUpdate struct {
	Code                *string
	Language            *string
	Mode                *Mode
	CurrentParticipants []Participant // nil means unchanged
	LastUpdated         *time.Time
}

// Apply copies the set fields of u into room
func (u RoomUpdate) Apply(room *Room) {
	if u.Code != nil {
		room.Code = *u.Code
	}
	if u.Language != nil {
		room.Language = *u.Language
	}
	if u.Mode != nil {
		room.Mode = *u.Mode
	}
	if u.CurrentParticipants != nil {
		room.CurrentParticipants = u.CurrentParticipants
	}
	if u.LastUpdated != nil {
		room.LastUpdated = *u.LastUpdated
	}
}
