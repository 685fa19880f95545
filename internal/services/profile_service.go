package services

import (
	"context"
	"errors"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/jackc/pgx/v5"
)

type consultantProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.ConsultantProfile, error)
	Update(ctx context.Context, userID int64, input repository.UpdateConsultantProfileInput) (*models.ConsultantProfile, error)
	ListListings(ctx context.Context) ([]models.ConsultantListing, error)
	GetListing(ctx context.Context, userID int64) (*models.ConsultantListing, error)
}

type ProfileService struct {
	profileRepo consultantProfileStore
	userRepo    userReader
}

func NewProfileService(profileRepo consultantProfileStore, userRepo userReader) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		userRepo:    userRepo,
	}
}

func (s *ProfileService) GetOwnProfile(ctx context.Context, consultantID int64) (*models.ConsultantProfile, error) {
	return s.profileRepo.GetByUserID(ctx, consultantID)
}

func (s *ProfileService) UpdateProfile(
	ctx context.Context,
	consultantID int64,
	input repository.UpdateConsultantProfileInput,
) (*models.ConsultantProfile, error) {
	if input.SessionRateCents != nil && *input.SessionRateCents <= 0 {
		return nil, ErrInvalidInput
	}
	return s.profileRepo.Update(ctx, consultantID, input)
}

// ListDirectory is the public consultant directory with rating aggregates.
func (s *ProfileService) ListDirectory(ctx context.Context) ([]models.ConsultantListing, error) {
	return s.profileRepo.ListListings(ctx)
}

func (s *ProfileService) GetListing(ctx context.Context, consultantID int64) (*models.ConsultantListing, error) {
	user, err := s.userRepo.GetByID(ctx, consultantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConsultantNotFound
		}
		return nil, err
	}
	if user.Role != models.RoleConsultant {
		return nil, ErrConsultantNotFound
	}

	listing, err := s.profileRepo.GetListing(ctx, consultantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConsultantNotFound
		}
		return nil, err
	}
	return listing, nil
}
