// Package domain defines the persistence models for questionnaires, their
// versioned schemas, and collected responses. These types are mapped with
// GORM and form the core data layer of the survey backend.
package domain

import (
	"time"
)

// Version lifecycle statuses. Exactly one version per questionnaire may be
// published and one may be a draft at any time; everything else is archived.
const (
	VersionStatusDraft     = "draft"
	VersionStatusPublished = "published"
	VersionStatusArchived  = "archived"
)

// Field types supported by the schema.
const (
	FieldTypeText     = "text"
	FieldTypeRadio    = "radio"
	FieldTypeCheckbox = "checkbox"
	FieldTypeScale    = "scale"
)

// Segmentation roles a field may declare. Sensitive fields are always
// treated as excluded regardless of the declared role.
const (
	SegmentRoleAuto      = "auto"
	SegmentRoleDimension = "dimension"
	SegmentRoleExclude   = "exclude"
)

// Questionnaire represents a tenant-scoped survey identity. A questionnaire
// is never hard-deleted; it is deactivated instead so historical responses
// stay interpretable.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - TenantID: owning tenant; indexed, part of the slug uniqueness scope.
//   - Slug: URL-safe identifier, unique per tenant.
//   - Name: human-readable display name.
//   - Active: soft on/off switch; inactive questionnaires reject submissions.
//   - IsDefault: at most one default questionnaire per tenant.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Questionnaire struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	TenantID  string    `json:"tenant_id"  gorm:"type:varchar(64);not null;index;uniqueIndex:ux_tenant_slug"`
	Slug      string    `json:"slug"       gorm:"type:varchar(128);not null;uniqueIndex:ux_tenant_slug"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Active    bool      `json:"active"     gorm:"not null;default:true"`
	IsDefault bool      `json:"is_default" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Questionnaire.
func (Questionnaire) TableName() string { return "questionnaires" }

// Field is one question definition inside a version's schema. Field names
// are stable identifiers, unique within one version, and are the keys under
// which answers are stored.
//
// SegmentRole controls segmentation discovery: "dimension" opts a
// radio/checkbox field in explicitly, "exclude" opts it out, and "auto"
// (the default) includes categorical, non-sensitive fields.
type Field struct {
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Label        string   `json:"label"`
	Criterion    string   `json:"criterion,omitempty"`
	Required     bool     `json:"required"`
	Options      []string `json:"options,omitempty"`
	SegmentRole  string   `json:"segment_role,omitempty"`
	SegmentLabel string   `json:"segment_label,omitempty"`
	Sensitive    bool     `json:"sensitive,omitempty"`
}

// EffectiveSegmentRole resolves the declared role against the sensitive flag
// and field type. Sensitive fields and non-categorical fields are always
// excluded; "dimension" is only meaningful for radio/checkbox fields.
func (f Field) EffectiveSegmentRole() string {
	if f.Sensitive {
		return SegmentRoleExclude
	}
	if f.Type != FieldTypeRadio && f.Type != FieldTypeCheckbox {
		return SegmentRoleExclude
	}
	switch f.SegmentRole {
	case SegmentRoleDimension:
		return SegmentRoleDimension
	case SegmentRoleExclude:
		return SegmentRoleExclude
	default:
		return SegmentRoleAuto
	}
}

// FieldList is the ordered question list of one version, persisted as a JSON
// column so a snapshot is stored and read atomically with its version row.
type FieldList []Field

// VersionMeta holds the presentation text shown with a version's form.
type VersionMeta struct {
	Title    string `json:"title"`
	Greeting string `json:"greeting,omitempty"`
}

// QuestionnaireVersion is one immutable schema snapshot. Version numbers are
// strictly increasing per questionnaire and never reused. A draft is mutated
// in place until published; published and archived versions never change.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - QuestionnaireID: foreign key to the owning questionnaire (indexed).
//   - Version: monotonically increasing number, unique per questionnaire.
//   - Status: draft | published | archived.
//   - Meta: title/greeting JSON snapshot.
//   - Fields: ordered field list JSON snapshot.
//   - PublishedAt: server-assigned publish timestamp; nil until published.
type QuestionnaireVersion struct {
	ID              string      `json:"id"               gorm:"type:char(36);primaryKey"`
	QuestionnaireID string      `json:"questionnaire_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_qnn_version_no"`
	Version         int         `json:"version"          gorm:"not null;uniqueIndex:ux_qnn_version_no"`
	Status          string      `json:"status"           gorm:"type:varchar(16);not null;index;check:status IN ('draft','published','archived')"`
	Meta            VersionMeta `json:"meta"             gorm:"serializer:json"`
	Fields          FieldList   `json:"fields"           gorm:"serializer:json"`
	PublishedAt     *time.Time  `json:"published_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	// Questionnaire is the owning survey. Versions are cascade-deleted if
	// the questionnaire row is ever removed out-of-band.
	Questionnaire Questionnaire `json:"-" gorm:"foreignKey:QuestionnaireID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for QuestionnaireVersion.
func (QuestionnaireVersion) TableName() string { return "questionnaire_versions" }

// FieldByName returns the field with the given name, if present.
func (v *QuestionnaireVersion) FieldByName(name string) (Field, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AnswerMap is one response's answers keyed by field name. Values are the
// normalized variants produced by the schema validator: string for text and
// radio answers, []string for checkbox answers, float64 for scale answers.
// After a JSON round-trip through storage, checkbox answers surface as
// []any; readers must handle both shapes.
type AnswerMap map[string]any

// Respondent is the identity-ish sub-object extracted from a submission
// using a fixed allow-list of answer keys (see schema.RespondentKeys).
type Respondent map[string]string

// Response is one submission, permanently bound to the questionnaire version
// it was validated against. Responses are inserted once and never mutated or
// deleted, which is what keeps old data interpretable after schema evolution.
type Response struct {
	ID              string     `json:"id"               gorm:"type:char(36);primaryKey"`
	TenantID        string     `json:"tenant_id"        gorm:"type:varchar(64);not null;index"`
	QuestionnaireID string     `json:"questionnaire_id" gorm:"type:char(36);not null;index:idx_qnn_responses,priority:1"`
	VersionID       string     `json:"version_id"       gorm:"type:char(36);not null;index"`
	Respondent      Respondent `json:"respondent"       gorm:"serializer:json"`
	Answers         AnswerMap  `json:"answers"          gorm:"serializer:json"`
	CreatedAt       time.Time  `json:"created_at"       gorm:"index:idx_qnn_responses,priority:2"`

	// Version is the schema snapshot this response was validated against.
	Version QuestionnaireVersion `json:"-" gorm:"foreignKey:VersionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Response.
func (Response) TableName() string { return "responses" }
