package model

import "github.com/google/uuid"

type Comment struct {
	BaseModel
	Comment        string     `gorm:"type:text;not null" json:"comment"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User           *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TaskID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"task_id"`
	Task           *Task      `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	SupportedFiles StringList `gorm:"type:text" json:"supported_files"`
}
