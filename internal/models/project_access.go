package models

import "gorm.io/gorm"

// ProjectAccess is the per-user permission entry for a project. At most one
// row exists per (user, project) pair; an absent row means no explicit
// permissions, which is distinct from a row with an empty list.
type ProjectAccess struct {
	gorm.Model

	UserID      uint       `gorm:"not null;uniqueIndex:idx_user_project_access"`
	ProjectID   uint       `gorm:"not null;uniqueIndex:idx_user_project_access"`
	Permissions StringList `gorm:"type:jsonb"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Project Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
