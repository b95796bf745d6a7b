package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
)

type signatoryStore interface {
	Create(ctx context.Context, signatory *models.Signatory) error
	GetByID(ctx context.Context, id string) (*models.Signatory, error)
	List(ctx context.Context) ([]models.Signatory, error)
	ListActive(ctx context.Context) ([]models.Signatory, error)
	Activate(ctx context.Context, id string) error
}

// SignatoryService manages the people who sign badges. At most one
// signatory is active; activation flips the flag for everyone else in
// the same transaction.
type SignatoryService struct {
	signatories signatoryStore
	logger      *zap.Logger
}

// NewSignatoryService constructs a SignatoryService.
func NewSignatoryService(signatories signatoryStore, logger *zap.Logger) *SignatoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignatoryService{signatories: signatories, logger: logger}
}

// List returns all signatories.
func (s *SignatoryService) List(ctx context.Context) ([]models.Signatory, error) {
	signatories, err := s.signatories.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list signatories")
	}
	return signatories, nil
}

// Create registers a new signatory, inactive until activated.
func (s *SignatoryService) Create(ctx context.Context, req dto.CreateSignatoryRequest) (*models.Signatory, error) {
	signatory := &models.Signatory{
		Rank:          strPtr(req.Rank),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Department:    req.Department,
		Position:      strPtr(req.Position),
		SignaturePath: strPtr(req.SignaturePath),
	}
	if err := s.signatories.Create(ctx, signatory); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create signatory")
	}
	return signatory, nil
}

// Activate makes the given signatory the single active signer.
func (s *SignatoryService) Activate(ctx context.Context, id string) (*models.Signatory, error) {
	if err := s.signatories.Activate(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to activate signatory")
	}
	signatory, err := s.signatories.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch signatory")
	}
	return signatory, nil
}

// Active resolves the single active signatory. No active row is a
// deployment configuration problem and is reported as such rather than
// silently picking someone.
func (s *SignatoryService) Active(ctx context.Context) (*models.Signatory, error) {
	active, err := s.signatories.ListActive(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active signatory")
	}
	switch len(active) {
	case 0:
		return nil, appErrors.ErrNoActiveSigner
	case 1:
		return &active[0], nil
	default:
		s.logger.Error("multiple signatories flagged active", zap.Int("count", len(active)))
		return nil, appErrors.Clone(appErrors.ErrInternal, "signatory configuration is inconsistent")
	}
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}
