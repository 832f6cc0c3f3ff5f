// Package tokens implements the opaque-token flows for group trips (§6):
// single-use invite links and 90-day read-only share links. Grounded on
// original_source/services/api/routers/invites.py and shared_trips.py.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"iaros/itinerary_core/internal/apperr"
	"iaros/itinerary_core/internal/models"
)

const (
	tokenByteLength  = 32
	inviteExpiryDays = 7
	shareExpiryDays  = 90
)

// generate returns a URL-safe, unpadded base64 encoding of 32 CSPRNG
// bytes — 43 characters, matching the upstream issuer exactly.
func generate() (string, error) {
	buf := make([]byte, tokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Service issues and redeems invite and share tokens for trips.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) requireOrganizer(ctx context.Context, tripID, userID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TripMember{}).
		Where("trip_id = ? AND user_id = ? AND role = ?", tripID, userID, models.TripMemberRoleOrganizer).
		Count(&count).Error
	if err != nil {
		return apperr.Transient("tokens_organizer_lookup_failed", "failed to verify organizer role", err)
	}
	if count == 0 {
		return apperr.Authz("tokens_not_organizer", "only trip organizers can manage invites and share links")
	}
	return nil
}

func (s *Service) requireTrip(ctx context.Context, tripID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Trip{}).Where("id = ?", tripID).Count(&count).Error
	if err != nil {
		return apperr.Transient("tokens_trip_lookup_failed", "failed to look up trip", err)
	}
	if count == 0 {
		return apperr.NotFound("tokens_trip_not_found", "trip not found")
	}
	return nil
}

// CreateInvite issues a single-use, 7-day invite token. Invite tokens
// never grant the organizer role.
func (s *Service) CreateInvite(ctx context.Context, tripID, actorUserID uuid.UUID) (*models.InviteToken, error) {
	if err := s.requireTrip(ctx, tripID); err != nil {
		return nil, err
	}
	if err := s.requireOrganizer(ctx, tripID, actorUserID); err != nil {
		return nil, err
	}

	tokenValue, err := generate()
	if err != nil {
		return nil, apperr.Transient("tokens_generation_failed", "failed to generate invite token", err)
	}

	invite := &models.InviteToken{
		ID:        uuid.New(),
		TripID:    tripID,
		Token:     tokenValue,
		CreatedBy: actorUserID,
		Role:      string(models.TripMemberRoleMember),
		MaxUses:   1,
		UsedCount: 0,
		ExpiresAt: time.Now().UTC().Add(inviteExpiryDays * 24 * time.Hour),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(invite).Error; err != nil {
		return nil, apperr.Transient("tokens_invite_create_failed", "failed to create invite token", err)
	}

	s.logger.Info("invite_created", zap.String("trip_id", tripID.String()),
		zap.String("by", actorUserID.String()), zap.String("token_id", invite.ID.String()))
	return invite, nil
}

// ListActiveInvites returns non-revoked, non-expired, non-exhausted
// invite tokens for a trip, newest first.
func (s *Service) ListActiveInvites(ctx context.Context, tripID, actorUserID uuid.UUID) ([]models.InviteToken, error) {
	if err := s.requireTrip(ctx, tripID); err != nil {
		return nil, err
	}
	if err := s.requireOrganizer(ctx, tripID, actorUserID); err != nil {
		return nil, err
	}

	var invites []models.InviteToken
	err := s.db.WithContext(ctx).
		Where("trip_id = ? AND revoked_at IS NULL AND expires_at > ? AND used_count < max_uses",
			tripID, time.Now().UTC()).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, apperr.Transient("tokens_invite_list_failed", "failed to list invite tokens", err)
	}
	return invites, nil
}

// RevokeInvite revokes an invite token. Revoking an already-revoked
// token is idempotent.
func (s *Service) RevokeInvite(ctx context.Context, tripID, tokenID, actorUserID uuid.UUID) (*models.InviteToken, error) {
	if err := s.requireTrip(ctx, tripID); err != nil {
		return nil, err
	}
	if err := s.requireOrganizer(ctx, tripID, actorUserID); err != nil {
		return nil, err
	}

	var invite models.InviteToken
	err := s.db.WithContext(ctx).Where("id = ? AND trip_id = ?", tokenID, tripID).First(&invite).Error
	if err != nil {
		return nil, apperr.NotFound("tokens_invite_not_found", "invite token not found")
	}

	if invite.RevokedAt != nil {
		return &invite, nil
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&invite).Update("revoked_at", now).Error; err != nil {
		return nil, apperr.Transient("tokens_invite_revoke_failed", "failed to revoke invite token", err)
	}
	invite.RevokedAt = &now

	s.logger.Info("invite_revoked", zap.String("trip_id", tripID.String()),
		zap.String("token_id", tokenID.String()), zap.String("by", actorUserID.String()))
	return &invite, nil
}

// JoinResult reports the outcome of redeeming an invite token.
type JoinResult struct {
	MemberID       uuid.UUID
	Role           models.TripMemberRole
	Status         string
	AlreadyMember  bool
}

// inviteIsRedeemable reports whether an invite token can still be
// redeemed at now: not revoked, not expired, not exhausted.
func inviteIsRedeemable(invite models.InviteToken, now time.Time) bool {
	if invite.RevokedAt != nil || invite.ExpiresAt.Before(now) {
		return false
	}
	return invite.UsedCount < invite.MaxUses
}

// shareLinkIsActive reports whether a share token still resolves at now:
// not revoked, not expired.
func shareLinkIsActive(shared models.SharedTripToken, now time.Time) bool {
	return shared.RevokedAt == nil && !shared.ExpiresAt.Before(now)
}

// ErrOpaqueNotFound is returned for every invalid redemption state
// (nonexistent, expired, revoked, exhausted token) — callers must map
// it to an identical 404 response to prevent oracle attacks.
var ErrOpaqueNotFound = apperr.NotFound("tokens_invite_invalid", "invite token not found")

// RedeemInvite joins userID to tripID using tokenValue. All invalid
// states collapse to ErrOpaqueNotFound.
func (s *Service) RedeemInvite(ctx context.Context, tripID uuid.UUID, tokenValue string, userID uuid.UUID) (*JoinResult, error) {
	now := time.Now().UTC()

	var invite models.InviteToken
	err := s.db.WithContext(ctx).Where("token = ? AND trip_id = ?", tokenValue, tripID).First(&invite).Error
	if err != nil {
		return nil, ErrOpaqueNotFound
	}
	if !inviteIsRedeemable(invite, now) {
		return nil, ErrOpaqueNotFound
	}

	var existing models.TripMember
	err = s.db.WithContext(ctx).Where("trip_id = ? AND user_id = ?", tripID, userID).First(&existing).Error
	if err == nil {
		return &JoinResult{MemberID: existing.ID, Role: existing.Role, Status: existing.Status, AlreadyMember: true}, nil
	}

	var result JoinResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member := models.TripMember{
			ID: uuid.New(), TripID: tripID, UserID: userID,
			Role: models.TripMemberRoleMember, Status: "joined", JoinedAt: now,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.InviteToken{}).Where("id = ?", invite.ID).
			UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
			return err
		}
		result = JoinResult{MemberID: member.ID, Role: member.Role, Status: member.Status}
		return nil
	})
	if txErr != nil {
		return nil, apperr.Transient("tokens_join_failed", "failed to join trip", txErr)
	}

	s.logger.Info("trip_joined", zap.String("trip_id", tripID.String()),
		zap.String("user_id", userID.String()), zap.String("via_token", invite.ID.String()))
	return &result, nil
}

// CreateShareLink issues a 90-day read-only share token for a trip.
func (s *Service) CreateShareLink(ctx context.Context, tripID, actorUserID uuid.UUID) (*models.SharedTripToken, error) {
	if err := s.requireTrip(ctx, tripID); err != nil {
		return nil, err
	}
	if err := s.requireOrganizer(ctx, tripID, actorUserID); err != nil {
		return nil, err
	}

	tokenValue, err := generate()
	if err != nil {
		return nil, apperr.Transient("tokens_generation_failed", "failed to generate share token", err)
	}

	shared := &models.SharedTripToken{
		ID:        uuid.New(),
		TripID:    tripID,
		Token:     tokenValue,
		CreatedBy: actorUserID,
		ExpiresAt: time.Now().UTC().Add(shareExpiryDays * 24 * time.Hour),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(shared).Error; err != nil {
		return nil, apperr.Transient("tokens_share_create_failed", "failed to create share token", err)
	}

	s.logger.Info("share_link_created", zap.String("trip_id", tripID.String()),
		zap.String("by", actorUserID.String()), zap.String("token_id", shared.ID.String()))
	return shared, nil
}

// ResolveShareLink fetches the trip behind a share token for the public
// read-only view and fire-and-forget increments its view count.
// Nonexistent, expired, and revoked tokens all collapse to
// ErrOpaqueNotFound.
func (s *Service) ResolveShareLink(ctx context.Context, tokenValue string) (*models.Trip, error) {
	now := time.Now().UTC()

	var shared models.SharedTripToken
	err := s.db.WithContext(ctx).Where("token = ?", tokenValue).First(&shared).Error
	if err != nil {
		return nil, ErrOpaqueNotFound
	}
	if !shareLinkIsActive(shared, now) {
		return nil, ErrOpaqueNotFound
	}

	var trip models.Trip
	if err := s.db.WithContext(ctx).Where("id = ?", shared.TripID).First(&trip).Error; err != nil {
		return nil, ErrOpaqueNotFound
	}

	go func() {
		if err := s.db.Model(&models.SharedTripToken{}).Where("id = ?", shared.ID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
			s.logger.Warn("share_view_count_increment_failed", zap.Error(err), zap.String("token_id", shared.ID.String()))
		}
	}()

	return &trip, nil
}
