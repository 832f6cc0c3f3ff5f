// Package models holds the gorm entity definitions for the §3 data model.
// Cross-entity references are held as ids only — all cross-entity work is
// database-driven, never via in-memory object graphs.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TripMode distinguishes solo trips from group trips.
type TripMode string

const (
	TripModeSolo  TripMode = "solo"
	TripModeGroup TripMode = "group"
)

// TripMemberRole gates mutation rights on a trip.
type TripMemberRole string

const (
	TripMemberRoleOrganizer TripMemberRole = "organizer"
	TripMemberRoleMember    TripMemberRole = "member"
)

// SlotType enumerates the kinds of itinerary slot.
type SlotType string

const (
	SlotTypeAnchor  SlotType = "anchor"
	SlotTypeMeal    SlotType = "meal"
	SlotTypeFlex    SlotType = "flex"
	SlotTypeTransit SlotType = "transit"
)

// SlotStatus enumerates the lifecycle of an itinerary slot.
type SlotStatus string

const (
	SlotStatusProposed  SlotStatus = "proposed"
	SlotStatusConfirmed SlotStatus = "confirmed"
	SlotStatusCompleted SlotStatus = "completed"
	SlotStatusSkipped   SlotStatus = "skipped"
)

// IsTerminal reports whether the slot can no longer be cascaded over.
func (s SlotStatus) IsTerminal() bool {
	return s == SlotStatusCompleted || s == SlotStatusSkipped
}

// SignalSource distinguishes behavioral writes from other signal origins;
// only "user_behavioral" counts toward write-back/training aggregation.
type SignalSource string

const (
	SignalSourceUserBehavioral  SignalSource = "user_behavioral"
	SignalSourceExplicitFeedback SignalSource = "explicit_feedback"
	SignalSourceSynthetic       SignalSource = "synthetic"
	SignalSourceRuleHeuristic   SignalSource = "rule_heuristic"
)

// TripPhase is the lifecycle stage a signal was recorded in.
type TripPhase string

const (
	TripPhasePreTrip  TripPhase = "pre_trip"
	TripPhaseActive   TripPhase = "active"
	TripPhasePostTrip TripPhase = "post_trip"
)

// AuditStatus is shared by the three nightly batch job audit tables.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusSkipped AuditStatus = "skipped"
	AuditStatusError   AuditStatus = "error"
)

// IngestionStatus tracks an off-plan-add entity-resolution request.
type IngestionStatus string

const (
	IngestionStatusPending IngestionStatus = "pending"
	IngestionStatusResolved IngestionStatus = "resolved"
)

// Trip is the external trip aggregate the core reads mostly and mutates
// narrowly (fairnessState, via the fairness engine).
type Trip struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Mode          TripMode  `gorm:"type:varchar(16)"`
	City          string
	Timezone      string // IANA zone name, e.g. "Asia/Tokyo"
	StartDate     time.Time
	EndDate       time.Time
	Status        string
	FairnessState []byte `gorm:"type:jsonb"` // serialized fairness.State
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TripMember links a user to a trip with a role.
type TripMember struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TripID   uuid.UUID      `gorm:"type:uuid;index:idx_trip_member_unique,unique"`
	UserID   uuid.UUID      `gorm:"type:uuid;index:idx_trip_member_unique,unique"`
	Role     TripMemberRole `gorm:"type:varchar(16)"`
	Status   string         // "joined", "invited", "left"
	JoinedAt time.Time
}

// ActivityNode is a canonical venue/experience. Category is the coarse
// enum used for duration/spatial defaults; PersonaCategory is the finer
// vocabulary used for persona-dimension mapping — see DESIGN.md for why
// these are kept distinct.
type ActivityNode struct {
	ID                      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name                    string
	Category                string
	PersonaCategory         string
	Latitude                float64
	Longitude               float64
	ConvergenceScore        *float64
	TouristScore            *float64
	CantMiss                bool
	VibeTags                []byte `gorm:"type:jsonb"` // JSON array of slugs, e.g. ["iconic-worth-it"]
	IsCanonical             bool
	Status                  string
	ImpressionCount         int64
	AcceptanceCount         int64
	BehavioralQualityScore  float64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ItinerarySlot is a positioned unit in a day's itinerary.
type ItinerarySlot struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TripID          uuid.UUID `gorm:"type:uuid;index"`
	ActivityNodeID  *uuid.UUID
	DayNumber       int
	SortOrder       int
	SlotType        SlotType
	Status          SlotStatus
	StartTime       *time.Time
	EndTime         *time.Time
	DurationMinutes *int
	IsLocked        bool
	WasSwapped      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BehavioralSignal is the append-only event log entry.
type BehavioralSignal struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;index"`
	TripID         uuid.UUID `gorm:"type:uuid;index"`
	ActivityNodeID *uuid.UUID
	SlotID         *uuid.UUID
	SignalType     string
	SignalValue    float64
	TripPhase      TripPhase
	RawAction      string
	Source         SignalSource
	Subflow        string
	SignalWeight   float64 // server-only; never serialized to clients
	WeatherContext string  // compact JSON snapshot, see weather.Context
	CreatedAt      time.Time
}

// IntentionSignal is a one-to-one (behavioral signal, source) refinement.
type IntentionSignal struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	BehavioralSignalID uuid.UUID `gorm:"type:uuid;index;not null"`
	IntentionType      string
	IntentionValue     string
	Confidence         float64
	Source             SignalSource
	CreatedAt          time.Time
}

// PersonaDimension is the upserted per-user preference dimension.
type PersonaDimension struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Dimension  string    `gorm:"primaryKey"`
	Value      string
	Confidence float64
	Source     string
	UpdatedAt  time.Time
}

// CorpusIngestionRequest records an unmatched off-plan-add entity for
// later resolution — see SPEC_FULL.md §3.
type CorpusIngestionRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TripID    uuid.UUID `gorm:"type:uuid;index"`
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	PlaceName string
	Status    IngestionStatus
	CreatedAt time.Time
}

// ShadowResult is an append-only record of a shadow-ranking comparison.
type ShadowResult struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	ModelID            string
	ModelVersion       string
	ShadowRankings     []byte `gorm:"type:jsonb"`
	ProductionRankings []byte `gorm:"type:jsonb"`
	OverlapAt5         float64
	NDCGAt10           float64
	LatencyMS          int64
	CreatedAt          time.Time
}

// WriteBackRun, PersonaUpdateRun, and TrainingExtractRun are the shared
// audit-row shape for the three nightly batch jobs (§4.2).
type WriteBackRun struct {
	RunDate      time.Time `gorm:"primaryKey;type:date"`
	Status       AuditStatus
	RowsUpdated  int
	DurationMS   int64
	ErrorMessage string
	CreatedAt    time.Time
}

type PersonaUpdateRun struct {
	RunDate          time.Time `gorm:"primaryKey;type:date"`
	Status           AuditStatus
	UsersUpdated     int
	DimensionsUpdated int
	DurationMS       int64
	ErrorMessage     string
	CreatedAt        time.Time
}

type TrainingExtractRun struct {
	RunDate       time.Time `gorm:"primaryKey;type:date"`
	Status        AuditStatus
	RowsExtracted int
	FilePath      string
	DurationMS    int64
	ErrorMessage  string
	CreatedAt     time.Time
}

// InviteToken and SharedTripToken back §6's opaque-token endpoints.
type InviteToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TripID    uuid.UUID `gorm:"type:uuid;index"`
	Token     string    `gorm:"uniqueIndex"`
	CreatedBy uuid.UUID `gorm:"type:uuid"`
	Role      string    // always "member" — invite tokens never grant organizer
	MaxUses   int
	UsedCount int
	RevokedAt *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

type SharedTripToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TripID    uuid.UUID `gorm:"type:uuid;index"`
	Token     string    `gorm:"uniqueIndex"`
	CreatedBy uuid.UUID `gorm:"type:uuid"`
	ViewCount int
	RevokedAt *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AllTables lists every model AutoMigrate should manage. The spatial
// index and PostGIS extension are created separately via raw SQL — gorm's
// AutoMigrate cannot express GIST indexes or extension bootstrap.
func AllTables() []interface{} {
	return []interface{}{
		&Trip{}, &TripMember{}, &ActivityNode{}, &ItinerarySlot{},
		&BehavioralSignal{}, &IntentionSignal{}, &PersonaDimension{},
		&CorpusIngestionRequest{}, &ShadowResult{},
		&WriteBackRun{}, &PersonaUpdateRun{}, &TrainingExtractRun{},
		&InviteToken{}, &SharedTripToken{},
	}
}
