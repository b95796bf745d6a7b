package service

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	promdto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/badge-issuance-api/internal/models"
	"github.com/noah-isme/badge-issuance-api/internal/repository"
	"github.com/noah-isme/badge-issuance-api/pkg/config"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
	"github.com/noah-isme/badge-issuance-api/pkg/render"
)

type badgeRepoStub struct {
	byID    map[string]*models.Badge
	byStaff map[string]*models.Badge
	numbers map[string][]string
	modes   map[string]models.SignatureMode

	requests *requestStoreStub
}

func newBadgeRepoStub(requests *requestStoreStub) *badgeRepoStub {
	return &badgeRepoStub{
		byID:     map[string]*models.Badge{},
		byStaff:  map[string]*models.Badge{},
		numbers:  map[string][]string{},
		modes:    map[string]models.SignatureMode{},
		requests: requests,
	}
}

func (s *badgeRepoStub) GetByID(ctx context.Context, id string) (*models.Badge, error) {
	badge, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return badge, nil
}

func (s *badgeRepoStub) GetByStaffID(ctx context.Context, staffID string) (*models.Badge, error) {
	badge, ok := s.byStaff[staffID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return badge, nil
}

func (s *badgeRepoStub) ListNumbersByCategory(ctx context.Context, categoryID string) ([]string, error) {
	return s.numbers[categoryID], nil
}

func (s *badgeRepoStub) List(ctx context.Context, filter models.BadgeFilter) ([]models.Badge, error) {
	result := []models.Badge{}
	for _, badge := range s.byID {
		result = append(result, *badge)
	}
	return result, nil
}

func (s *badgeRepoStub) CreateWithRequestAdvance(ctx context.Context, badge *models.Badge, transition repository.TransitionParams) error {
	if err := s.requests.Transition(ctx, transition); err != nil {
		return err
	}
	if badge.ID == "" {
		badge.ID = "badge-" + badge.Number
	}
	s.byID[badge.ID] = badge
	s.byStaff[badge.StaffID] = badge
	s.numbers[badge.CategoryID] = append(s.numbers[badge.CategoryID], badge.Number)
	return nil
}

func (s *badgeRepoStub) DeleteWithRequestRollback(ctx context.Context, badgeID string, transition repository.TransitionParams) error {
	badge, ok := s.byID[badgeID]
	if !ok {
		return sql.ErrNoRows
	}
	if err := s.requests.Transition(ctx, transition); err != nil {
		return err
	}
	delete(s.byID, badgeID)
	delete(s.byStaff, badge.StaffID)
	return nil
}

func (s *badgeRepoStub) UpdateSignature(ctx context.Context, badgeID string, mode models.SignatureMode, signerID *string) error {
	badge, ok := s.byID[badgeID]
	if !ok {
		return sql.ErrNoRows
	}
	badge.SignatureMode = mode
	badge.SignerID = signerID
	s.modes[badgeID] = mode
	return nil
}

type badgeStaffStub struct {
	staff  map[string]*models.StaffProfile
	photos map[string]*models.Photo
}

func (s *badgeStaffStub) GetByID(ctx context.Context, id string) (*models.StaffProfile, error) {
	staff, ok := s.staff[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return staff, nil
}

func (s *badgeStaffStub) GetPhoto(ctx context.Context, staffID string) (*models.Photo, error) {
	photo, ok := s.photos[staffID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return photo, nil
}

type badgeCategoryStub struct {
	categories map[string]*models.BadgeCategory
}

func (s *badgeCategoryStub) GetByID(ctx context.Context, id string) (*models.BadgeCategory, error) {
	category, ok := s.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return category, nil
}

func (s *badgeCategoryStub) ListActive(ctx context.Context) ([]models.BadgeCategory, error) {
	result := []models.BadgeCategory{}
	for _, category := range s.categories {
		result = append(result, *category)
	}
	return result, nil
}

type signerProviderStub struct {
	signatory *models.Signatory
	err       error
}

func (s *signerProviderStub) Active(ctx context.Context) (*models.Signatory, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.signatory, nil
}

type workDateStub struct {
	value string
}

func (s *workDateStub) WorkDate(ctx context.Context) (string, error) {
	return s.value, nil
}

type artifactStoreStub struct {
	files map[string][]byte
}

func newArtifactStoreStub() *artifactStoreStub {
	return &artifactStoreStub{files: map[string][]byte{}}
}

func (s *artifactStoreStub) Save(filename string, data []byte) (string, error) {
	s.files[filename] = data
	return filename, nil
}

func (s *artifactStoreStub) Read(filename string) ([]byte, error) {
	data, ok := s.files[filename]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (s *artifactStoreStub) Delete(filename string) error {
	delete(s.files, filename)
	return nil
}

type mediaStoreStub struct {
	files map[string][]byte
}

func (s *mediaStoreStub) Read(filename string) ([]byte, error) {
	data, ok := s.files[filename]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func serviceTestRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"pink.png", "green.png", "red.png"} {
		img := image.NewRGBA(image.Rect(0, 0, 1122, 768))
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	assets := render.LoadAssets(config.AssetsConfig{
		TemplateDir: dir,
		FontRegular: filepath.Join(dir, "missing.ttf"),
		FontBold:    filepath.Join(dir, "missing-bold.ttf"),
	}, nil)
	return render.New(assets)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 60, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type badgeFixture struct {
	requests  *requestStoreStub
	badges    *badgeRepoStub
	staff     *badgeStaffStub
	signer    *signerProviderStub
	artifacts *artifactStoreStub
	media     *mediaStoreStub
	metrics   *MetricsService
	service   *BadgeService
}

func newBadgeFixture(t *testing.T) *badgeFixture {
	t.Helper()
	zone := "A"
	requests := &requestStoreStub{
		requests: map[string]*models.BadgeRequest{
			"req-1": {ID: "req-1", StaffID: "staff-1", Status: models.StatusApproved},
		},
	}
	badges := newBadgeRepoStub(requests)
	staff := &badgeStaffStub{
		staff: map[string]*models.StaffProfile{
			"staff-1": {ID: "staff-1", Title: "นาย", FirstName: "สมชาย", LastName: "ใจดี",
				Position: "เจ้าหน้าที่", CategoryID: "cat-pink", ZoneCode: &zone},
		},
		photos: map[string]*models.Photo{
			"staff-1": {StaffID: "staff-1", Path: "photos/staff-1.png"},
		},
	}
	categories := &badgeCategoryStub{categories: map[string]*models.BadgeCategory{
		"cat-pink":  {ID: "cat-pink", Color: models.ColorPink},
		"cat-green": {ID: "cat-green", Color: models.ColorGreen},
	}}
	signaturePath := "signatures/boss.png"
	signer := &signerProviderStub{signatory: &models.Signatory{
		ID: "signer-1", FirstName: "ประยุทธ", LastName: "มั่นคง", Department: "อำนวยการ",
		SignaturePath: &signaturePath, IsActive: true,
	}}
	artifacts := newArtifactStoreStub()
	media := &mediaStoreStub{files: map[string][]byte{
		"photos/staff-1.png":  pngBytes(t, 300, 400),
		"signatures/boss.png": pngBytes(t, 400, 160),
	}}

	metrics := NewMetricsService()
	service := NewBadgeService(badges, requests, staff, categories, signer,
		&workDateStub{value: "๒๔ ธ.ค. ๒๕๖๘"}, serviceTestRenderer(t), artifacts, media, metrics, nil)
	return &badgeFixture{
		requests: requests, badges: badges, staff: staff, signer: signer,
		artifacts: artifacts, media: media, metrics: metrics, service: service,
	}
}

func TestBadgeServiceCreateFirstNumber(t *testing.T) {
	f := newBadgeFixture(t)

	badge, err := f.service.Create(context.Background(), "req-1", officer(), "10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, "pink-๐๐๑", badge.Number)
	assert.Equal(t, models.SignatureManual, badge.SignatureMode)
	require.NotNil(t, badge.SignerID)
	assert.Equal(t, "signer-1", *badge.SignerID)

	assert.Equal(t, models.StatusBadgeCreated, f.requests.requests["req-1"].Status)
	require.Len(t, f.requests.logs, 1)
	assert.Equal(t, models.ActionBadgeCreated, f.requests.logs[0].Action)

	artifact, err := f.artifacts.Read(badge.ArtifactPath)
	require.NoError(t, err)
	assert.NotEmpty(t, artifact)
}

func TestBadgeServiceCreateTakesMaxPlusOne(t *testing.T) {
	f := newBadgeFixture(t)
	// A gap at ๐๐๒-๐๐๔ must stay a gap.
	f.badges.numbers["cat-pink"] = []string{"pink-๐๐๑", "pink-๐๐๕"}

	badge, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.NoError(t, err)
	assert.Equal(t, "pink-๐๐๖", badge.Number)
}

func TestBadgeServiceCreateSkipsMalformedNumbers(t *testing.T) {
	f := newBadgeFixture(t)
	f.badges.numbers["cat-pink"] = []string{"pink-abc", "pink-๐๐๒"}

	badge, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.NoError(t, err)
	assert.Equal(t, "pink-๐๐๓", badge.Number)
}

func TestBadgeServiceCreateRequiresApprovedRequest(t *testing.T) {
	f := newBadgeFixture(t)
	f.requests.requests["req-1"].Status = models.StatusSubmitted

	_, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBadgeServiceCreateRejectsDuplicate(t *testing.T) {
	f := newBadgeFixture(t)
	f.badges.byStaff["staff-1"] = &models.Badge{ID: "badge-old", StaffID: "staff-1"}

	_, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBadgeExists.Code, appErrors.FromError(err).Code)
}

func TestBadgeServiceCreateNeedsActiveSigner(t *testing.T) {
	f := newBadgeFixture(t)
	f.signer.signatory = nil
	f.signer.err = appErrors.ErrNoActiveSigner

	_, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoActiveSigner.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.artifacts.files)
}

func TestBadgeServiceCreateNeedsReviewerRole(t *testing.T) {
	f := newBadgeFixture(t)
	_, err := f.service.Create(context.Background(), "req-1", submitter(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBadgeServiceDelete(t *testing.T) {
	f := newBadgeFixture(t)
	badge, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), badge.ID, officer(), ""))

	assert.Equal(t, models.StatusApproved, f.requests.requests["req-1"].Status)
	_, err = f.artifacts.Read(badge.ArtifactPath)
	assert.Error(t, err)
	last := f.requests.logs[len(f.requests.logs)-1]
	assert.Equal(t, models.ActionBadgeDeleted, last.Action)
}

func TestBadgeServiceDeleteStaleRequest(t *testing.T) {
	f := newBadgeFixture(t)
	badge, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.NoError(t, err)
	// Another actor already rolled the request back; deleting now
	// would log a rollback from a status the row no longer holds.
	f.requests.requests["req-1"].Status = models.StatusApproved

	err = f.service.Delete(context.Background(), badge.ID, officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleState.Code, appErrors.FromError(err).Code)

	_, err = f.badges.GetByID(context.Background(), badge.ID)
	assert.NoError(t, err)
	_, err = f.artifacts.Read(badge.ArtifactPath)
	assert.NoError(t, err)
}

func TestBadgeServiceCreateCountsMetrics(t *testing.T) {
	f := newBadgeFixture(t)

	_, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.NoError(t, err)

	issued := f.metrics.badgesIssued.WithLabelValues(string(models.ColorPink))
	assert.Equal(t, float64(1), testutil.ToFloat64(issued))

	pb := &promdto.Metric{}
	require.NoError(t, f.metrics.renderDuration.Write(pb))
	assert.EqualValues(t, 1, pb.GetHistogram().GetSampleCount())
}

func TestBadgeServiceChangeColor(t *testing.T) {
	f := newBadgeFixture(t)
	badge, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.NoError(t, err)
	oldPath := badge.ArtifactPath

	recolored, err := f.service.ChangeColor(context.Background(), badge.ID, "cat-green", officer(), "")
	require.NoError(t, err)
	assert.Equal(t, "green-๐๐๑", recolored.Number)
	assert.Equal(t, "cat-green", recolored.CategoryID)

	_, err = f.artifacts.Read(oldPath)
	assert.Error(t, err)
	assert.Equal(t, models.StatusBadgeCreated, f.requests.requests["req-1"].Status)

	actions := []models.ApprovalAction{}
	for _, log := range f.requests.logs {
		actions = append(actions, log.Action)
	}
	assert.Equal(t, []models.ApprovalAction{
		models.ActionBadgeCreated, models.ActionChangeColor, models.ActionBadgeCreated,
	}, actions)
}

func TestBadgeServiceChangeColorSameCategory(t *testing.T) {
	f := newBadgeFixture(t)
	badge, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.NoError(t, err)

	_, err = f.service.ChangeColor(context.Background(), badge.ID, "cat-pink", officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBadgeServiceUpdateSignatureModeElectronic(t *testing.T) {
	f := newBadgeFixture(t)
	badge, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.NoError(t, err)
	original := append([]byte(nil), f.artifacts.files[badge.ArtifactPath]...)

	updated, err := f.service.UpdateSignatureMode(context.Background(), badge.ID, models.SignatureElectronic, officer(), "")
	require.NoError(t, err)
	assert.Equal(t, models.SignatureElectronic, updated.SignatureMode)
	assert.Equal(t, badge.Number, updated.Number)
	assert.Equal(t, badge.ArtifactPath, updated.ArtifactPath)
	// The overwritten artifact carries the pasted signature.
	assert.NotEqual(t, original, f.artifacts.files[badge.ArtifactPath])
}

func TestBadgeServiceUpdateSignatureModeNeedsSignatureImage(t *testing.T) {
	f := newBadgeFixture(t)
	badge, err := f.service.Create(context.Background(), "req-1", officer(), "")
	require.NoError(t, err)
	f.signer.signatory.SignaturePath = nil

	_, err = f.service.UpdateSignatureMode(context.Background(), badge.ID, models.SignatureElectronic, officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
