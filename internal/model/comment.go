package model

import "github.com/google/uuid"

type Comment struct {
	Base
	ActivityID uuid.UUID `gorm:"type:uuid;not null;index" json:"activity_id"`
	AuthorID   uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Body       string    `gorm:"type:text;not null" json:"body"`
}
