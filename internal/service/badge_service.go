package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // photo uploads may be JPEG
	"image/png"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/badge-issuance-api/internal/models"
	"github.com/noah-isme/badge-issuance-api/internal/repository"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
	"github.com/noah-isme/badge-issuance-api/pkg/numeral"
	"github.com/noah-isme/badge-issuance-api/pkg/render"
)

type badgeStore interface {
	GetByID(ctx context.Context, id string) (*models.Badge, error)
	GetByStaffID(ctx context.Context, staffID string) (*models.Badge, error)
	ListNumbersByCategory(ctx context.Context, categoryID string) ([]string, error)
	List(ctx context.Context, filter models.BadgeFilter) ([]models.Badge, error)
	CreateWithRequestAdvance(ctx context.Context, badge *models.Badge, transition repository.TransitionParams) error
	DeleteWithRequestRollback(ctx context.Context, badgeID string, transition repository.TransitionParams) error
	UpdateSignature(ctx context.Context, badgeID string, mode models.SignatureMode, signerID *string) error
}

type badgeRequestReader interface {
	GetByID(ctx context.Context, id string) (*models.BadgeRequest, error)
	GetByStaffID(ctx context.Context, staffID string) (*models.BadgeRequest, error)
}

type badgeStaffReader interface {
	GetByID(ctx context.Context, id string) (*models.StaffProfile, error)
	GetPhoto(ctx context.Context, staffID string) (*models.Photo, error)
}

type badgeCategoryReader interface {
	GetByID(ctx context.Context, id string) (*models.BadgeCategory, error)
	ListActive(ctx context.Context) ([]models.BadgeCategory, error)
}

type activeSignerProvider interface {
	Active(ctx context.Context) (*models.Signatory, error)
}

type workDateProvider interface {
	WorkDate(ctx context.Context) (string, error)
}

type artifactStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
}

type mediaReader interface {
	Read(filename string) ([]byte, error)
}

// BadgeService issues, regenerates and retires badge artifacts. Number
// allocation is serialized per category: the keyed lock spans the
// max-scan and the insert so two creations in the same category cannot
// race to the same number.
type BadgeService struct {
	badges      badgeStore
	requests    badgeRequestReader
	staff       badgeStaffReader
	categories  badgeCategoryReader
	signatories activeSignerProvider
	workDates   workDateProvider
	renderer    *render.Renderer
	artifacts   artifactStore
	media       mediaReader
	metrics     *MetricsService
	logger      *zap.Logger

	mu            sync.Mutex
	categoryLocks map[string]*sync.Mutex
}

// NewBadgeService constructs a BadgeService.
func NewBadgeService(badges badgeStore, requests badgeRequestReader, staff badgeStaffReader, categories badgeCategoryReader, signatories activeSignerProvider, workDates workDateProvider, renderer *render.Renderer, artifacts artifactStore, media mediaReader, metrics *MetricsService, logger *zap.Logger) *BadgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeService{
		badges:        badges,
		requests:      requests,
		staff:         staff,
		categories:    categories,
		signatories:   signatories,
		workDates:     workDates,
		renderer:      renderer,
		artifacts:     artifacts,
		media:         media,
		metrics:       metrics,
		logger:        logger,
		categoryLocks: make(map[string]*sync.Mutex),
	}
}

// Get fetches a badge by identifier.
func (s *BadgeService) Get(ctx context.Context, id string) (*models.Badge, error) {
	badge, err := s.badges.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "badge not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch badge")
	}
	return badge, nil
}

// List returns badges matching the filter.
func (s *BadgeService) List(ctx context.Context, filter models.BadgeFilter) ([]models.Badge, error) {
	badges, err := s.badges.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list badges")
	}
	return badges, nil
}

// Categories returns the active badge categories in display order.
func (s *BadgeService) Categories(ctx context.Context) ([]models.BadgeCategory, error) {
	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list badge categories")
	}
	return categories, nil
}

// Artifact returns the rendered badge PNG for download.
func (s *BadgeService) Artifact(ctx context.Context, badgeID string) ([]byte, error) {
	badge, err := s.Get(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	data, err := s.artifacts.Read(badge.ArtifactPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read badge artifact")
	}
	return data, nil
}

// Create issues a badge for an approved request: allocate the next
// number in the category, render the artifact with the manual-signature
// block, store it, and advance the request to badge_created. The insert
// and the request transition commit together.
func (s *BadgeService) Create(ctx context.Context, requestID string, actor *models.JWTClaims, ip string) (*models.Badge, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "badge request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch badge request")
	}
	if request.Status != models.StatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "badge can only be created for an approved request")
	}

	if _, err := s.badges.GetByStaffID(ctx, request.StaffID); err == nil {
		return nil, appErrors.ErrBadgeExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing badge")
	}

	staff, category, err := s.subjectAndCategory(ctx, request.StaffID, "")
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, request, staff, category, actor, ip)
}

// Delete retires a badge: the artifact file goes away, the row is
// removed, and the owning request rolls back to approved.
func (s *BadgeService) Delete(ctx context.Context, badgeID string, actor *models.JWTClaims, ip string) error {
	if err := requireReviewer(actor); err != nil {
		return err
	}
	badge, err := s.Get(ctx, badgeID)
	if err != nil {
		return err
	}
	request, err := s.requests.GetByStaffID(ctx, badge.StaffID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch owning request")
	}
	if !postIssuance(request.Status) {
		return appErrors.ErrStaleState
	}

	params := s.rollbackParams(request, models.ActionBadgeDeleted, "", actor, ip)
	if err := s.badges.DeleteWithRequestRollback(ctx, badgeID, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrStaleState
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete badge")
	}

	if err := s.artifacts.Delete(badge.ArtifactPath); err != nil {
		s.logger.Warn("orphaned badge artifact left on disk",
			zap.String("badge_id", badgeID), zap.String("path", badge.ArtifactPath), zap.Error(err))
	}
	return nil
}

// ChangeColor moves a badge to another category. The number encodes the
// category color, so the badge is retired and reissued under the new
// category's namespace rather than renamed in place.
func (s *BadgeService) ChangeColor(ctx context.Context, badgeID, categoryID string, actor *models.JWTClaims, ip string) (*models.Badge, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	badge, err := s.Get(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	if badge.CategoryID == categoryID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "badge already belongs to this category")
	}
	staff, category, err := s.subjectAndCategory(ctx, badge.StaffID, categoryID)
	if err != nil {
		return nil, err
	}
	request, err := s.requests.GetByStaffID(ctx, badge.StaffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch owning request")
	}
	if !postIssuance(request.Status) {
		return nil, appErrors.ErrStaleState
	}

	params := s.rollbackParams(request, models.ActionChangeColor,
		fmt.Sprintf("recolor to %s", category.Color), actor, ip)
	if err := s.badges.DeleteWithRequestRollback(ctx, badgeID, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStaleState
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire badge for recolor")
	}
	if err := s.artifacts.Delete(badge.ArtifactPath); err != nil {
		s.logger.Warn("orphaned badge artifact left on disk",
			zap.String("badge_id", badgeID), zap.String("path", badge.ArtifactPath), zap.Error(err))
	}

	request.Status = models.StatusApproved
	return s.issue(ctx, request, staff, category, actor, ip)
}

// UpdateSignatureMode switches between the wet-signature region and the
// pasted electronic signature. The artifact is rendered from scratch
// and overwritten at the same path; number and row identity survive.
func (s *BadgeService) UpdateSignatureMode(ctx context.Context, badgeID string, mode models.SignatureMode, actor *models.JWTClaims, ip string) (*models.Badge, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	if mode != models.SignatureManual && mode != models.SignatureElectronic {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown signature mode")
	}
	badge, err := s.Get(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	staff, category, err := s.subjectAndCategory(ctx, badge.StaffID, badge.CategoryID)
	if err != nil {
		return nil, err
	}
	signatory, err := s.signatories.Active(ctx)
	if err != nil {
		return nil, err
	}
	if mode == models.SignatureElectronic && (signatory.SignaturePath == nil || *signatory.SignaturePath == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "active signatory has no signature image")
	}

	data, err := s.renderArtifact(ctx, staff, category, badge.Number, signatory, mode)
	if err != nil {
		return nil, err
	}
	if _, err := s.artifacts.Save(badge.ArtifactPath, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store badge artifact")
	}
	if err := s.badges.UpdateSignature(ctx, badgeID, mode, &signatory.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record signature mode")
	}
	return s.Get(ctx, badgeID)
}

// issue allocates the number, renders and stores the artifact, and
// inserts the badge while advancing the request, all under the
// category's allocation lock.
func (s *BadgeService) issue(ctx context.Context, request *models.BadgeRequest, staff *models.StaffProfile, category *models.BadgeCategory, actor *models.JWTClaims, ip string) (*models.Badge, error) {
	signatory, err := s.signatories.Active(ctx)
	if err != nil {
		return nil, err
	}

	lock := s.categoryLock(category.ID)
	lock.Lock()
	defer lock.Unlock()

	number, err := s.nextNumber(ctx, category)
	if err != nil {
		return nil, err
	}

	data, err := s.renderArtifact(ctx, staff, category, number, signatory, models.SignatureManual)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("badges/%s.png", number)
	if _, err := s.artifacts.Save(path, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store badge artifact")
	}

	badge := &models.Badge{
		StaffID:       staff.ID,
		CategoryID:    category.ID,
		Number:        number,
		ArtifactPath:  path,
		SignatureMode: models.SignatureManual,
		SignerID:      &signatory.ID,
		CreatedBy:     userIDPtr(actor),
	}
	transition := repository.TransitionParams{
		RequestID:    request.ID,
		FromStatuses: []models.RequestStatus{models.StatusApproved},
		ToStatus:     models.StatusBadgeCreated,
		Log: models.ApprovalLog{
			RequestID:      request.ID,
			Action:         models.ActionBadgeCreated,
			PreviousStatus: request.Status,
			NewStatus:      models.StatusBadgeCreated,
			Comment:        fmt.Sprintf("badge %s issued", number),
			PerformedBy:    userIDPtr(actor),
			IPAddress:      ip,
		},
	}
	if err := s.badges.CreateWithRequestAdvance(ctx, badge, transition); err != nil {
		if deleteErr := s.artifacts.Delete(path); deleteErr != nil {
			s.logger.Warn("orphaned badge artifact left on disk",
				zap.String("path", path), zap.Error(deleteErr))
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStaleState
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create badge")
	}
	s.metrics.ObserveBadgeIssued(string(category.Color))
	s.metrics.ObserveTransition(string(models.ActionBadgeCreated))
	return badge, nil
}

// nextNumber scans the category's issued numbers, decodes each Thai
// numeral suffix and takes max+1. Gaps left by deleted badges are never
// refilled; counting rows would hand them out again.
func (s *BadgeService) nextNumber(ctx context.Context, category *models.BadgeCategory) (string, error) {
	numbers, err := s.badges.ListNumbersByCategory(ctx, category.ID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan issued numbers")
	}

	max := 0
	for _, number := range numbers {
		suffix := number
		if i := strings.LastIndex(number, "-"); i >= 0 {
			suffix = number[i+1:]
		}
		value, err := numeral.Decode(suffix)
		if err != nil {
			s.logger.Warn("skipping malformed badge number",
				zap.String("number", number), zap.Error(err))
			continue
		}
		if value > max {
			max = value
		}
	}
	return fmt.Sprintf("%s-%s", category.Color, numeral.EncodePadded(max+1, 3)), nil
}

// renderArtifact composes the badge image, applies the signatory block
// and returns the encoded PNG.
func (s *BadgeService) renderArtifact(ctx context.Context, staff *models.StaffProfile, category *models.BadgeCategory, number string, signatory *models.Signatory, mode models.SignatureMode) ([]byte, error) {
	var photo image.Image
	if category.Color.RequiresPhoto() {
		loaded, err := s.loadPhoto(ctx, staff.ID)
		if err != nil {
			return nil, err
		}
		photo = loaded
	}

	workDate, err := s.workDates.WorkDate(ctx)
	if err != nil {
		s.logger.Warn("work date unavailable, rendering without it", zap.Error(err))
		workDate = ""
	}

	started := time.Now()

	in := render.Input{
		Subject: render.Subject{
			Title:       staff.Title,
			FirstName:   staff.FirstName,
			LastName:    staff.LastName,
			DisplayName: strValue(staff.DisplayName),
			Position:    staff.Position,
			ZoneCode:    strValue(staff.ZoneCode),
		},
		Number:   number,
		Color:    category.Color,
		Photo:    photo,
		WorkDate: workDate,
	}
	composed, err := s.renderer.Compose(in)
	if err != nil {
		return nil, err
	}

	signer := render.Signer{
		Rank:      strValue(signatory.Rank),
		FirstName: signatory.FirstName,
		LastName:  signatory.LastName,
		Position:  strValue(signatory.Position),
	}
	if mode == models.SignatureElectronic && signatory.SignaturePath != nil {
		signature, err := s.loadImage(*signatory.SignaturePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load signature image")
		}
		signer.Signature = signature
	}
	final := s.renderer.ApplySignature(composed, signer, mode)

	var buf bytes.Buffer
	if err := png.Encode(&buf, final); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode badge artifact")
	}
	s.metrics.ObserveRender(time.Since(started))
	return buf.Bytes(), nil
}

func (s *BadgeService) loadPhoto(ctx context.Context, staffID string) (image.Image, error) {
	photo, err := s.staff.GetPhoto(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no cropped photo on file for this subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch staff photo")
	}
	loaded, err := s.loadImage(photo.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff photo")
	}
	return loaded, nil
}

func (s *BadgeService) loadImage(path string) (image.Image, error) {
	data, err := s.media.Read(path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// subjectAndCategory loads the staff profile and the badge category,
// defaulting to the staff's own category when categoryID is empty.
func (s *BadgeService) subjectAndCategory(ctx context.Context, staffID, categoryID string) (*models.StaffProfile, *models.BadgeCategory, error) {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "staff profile not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch staff profile")
	}
	if categoryID == "" {
		categoryID = staff.CategoryID
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "badge category not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch badge category")
	}
	if !category.Color.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "category has no known badge template")
	}
	return staff, category, nil
}

// rollbackParams builds the request transition accompanying a badge
// retirement: back to approved, guarded on the exact status the caller
// read so the trail's previous_status cannot drift from the row.
func (s *BadgeService) rollbackParams(request *models.BadgeRequest, action models.ApprovalAction, comment string, actor *models.JWTClaims, ip string) repository.TransitionParams {
	return repository.TransitionParams{
		RequestID:    request.ID,
		FromStatuses: []models.RequestStatus{request.Status},
		ToStatus:     models.StatusApproved,
		Log: models.ApprovalLog{
			RequestID:      request.ID,
			Action:         action,
			PreviousStatus: request.Status,
			NewStatus:      models.StatusApproved,
			Comment:        comment,
			PerformedBy:    userIDPtr(actor),
			IPAddress:      ip,
		},
	}
}

// postIssuance reports whether a request sits past badge creation.
func postIssuance(status models.RequestStatus) bool {
	switch status {
	case models.StatusBadgeCreated, models.StatusPrinted, models.StatusCompleted:
		return true
	}
	return false
}

func (s *BadgeService) categoryLock(categoryID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.categoryLocks[categoryID]
	if !ok {
		lock = &sync.Mutex{}
		s.categoryLocks[categoryID] = lock
	}
	return lock
}

func strValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
