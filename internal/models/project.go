package models

import "gorm.io/gorm"

type Project struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	Path        string        `gorm:"not null"` // Backing directory in the datastore
	Permissions PermissionMap `gorm:"type:jsonb"`
	OwnerID     uint          `gorm:"index"`

	// Relationships
	Owner           User            `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
	Jobs            []Job           `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	ProjectAccesses []ProjectAccess `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// PublicRead reports whether the public slot grants read access.
func (p *Project) PublicRead() bool {
	return p.Permissions["other"].Contains("read")
}
