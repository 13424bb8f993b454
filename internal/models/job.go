package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Job struct {
	gorm.Model

	ProjectID  uint           `gorm:"not null;index"`
	Title      string         `gorm:"not null"`
	Status     string         `gorm:"not null;default:'submitted'"`
	Path       string         `gorm:"not null"` // Working directory, nested under the project path
	Parameters datatypes.JSON `gorm:"type:jsonb"`

	// Relationships
	Project Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
