package model

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	BaseModel
	Name               string     `gorm:"type:varchar(250);not null" json:"name"`
	Description        string     `gorm:"type:text" json:"description"`
	ProjectID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	Project            *Project   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	UserID             *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User               *User      `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	EstimatedStartTime *time.Time `json:"estimated_start_time,omitempty"`
	EstimatedEndTime   *time.Time `json:"estimated_end_time,omitempty"`
	ActualStartTime    *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime      *time.Time `json:"actual_end_time,omitempty"`
	Priority           string     `gorm:"type:varchar(20);default:'medium'" json:"priority"`
	Status             string     `gorm:"type:varchar(20);default:'not_started'" json:"status"`
	SupportedFiles     StringList `gorm:"type:text" json:"supported_files"`
}
