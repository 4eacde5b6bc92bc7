// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed
// submission, keyed by (tenant_id, questionnaire_id, key). It enables safe
// retries of response POSTs by returning the originally stored response
// without inserting a second row.
type Idempotency struct {
	ID              string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	TenantID        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_tenant_qnn_key,priority:1"`
	QuestionnaireID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_tenant_qnn_key,priority:2"`
	Key             string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_tenant_qnn_key,priority:3"`
	ResponseID      string    `gorm:"type:TEXT NOT NULL"`
	Status          int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt       time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt       time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
