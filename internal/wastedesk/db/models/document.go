// Package models contains the storage models for the application,
// configured to work using GORM as the ORM.
package models

import "time"

// Document is one keyed JSON document. Each collection of the domain is
// stored as a single document holding a JSON array.
type Document struct {
	Key       string `gorm:"primaryKey;size:128"`
	Data      string `gorm:"type:text;not null"`
	Version   int64  `gorm:"not null;default:1"`
	UpdatedAt time.Time
}
