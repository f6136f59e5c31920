package model

import "time"

// FileMeta is the metadata of a shared file, without its content
type FileMeta struct {
	ID         string       `json:"id" bson:"_id"`
	RoomID     string       `json:"roomId,omitempty" bson:"room,omitempty"`
	Name       string       `json:"name" bson:"originalName"`
	MimeType   string       `json:"mimeType,omitempty" bson:"mimeType"`
	Size       int64        `json:"size" bson:"size"`
	UploaderID string       `json:"uploaderId" bson:"uploader"`
	Uploader   *UserProfile `json:"uploader,omitempty" bson:"-"`
	ShareURL   string       `json:"shareUrl,omitempty" bson:"shareUrl,omitempty"`
	CreatedAt  time.Time    `json:"createdAt" bson:"createdAt"`
}
