package model

import "time"

type Project struct {
	BaseModel
	Name        string     `gorm:"type:varchar(250);uniqueIndex;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	UserIDs     StringList `gorm:"type:text" json:"user_ids"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}
