package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAlreadyRated = errors.New("session already rated")

type RatingService struct {
	db          *pgxpool.Pool
	sessionRepo *repository.ChatSessionRepository
	ratingRepo  *repository.RatingRepository
}

func NewRatingService(
	db *pgxpool.Pool,
	sessionRepo *repository.ChatSessionRepository,
	ratingRepo *repository.RatingRepository,
) *RatingService {
	return &RatingService{
		db:          db,
		sessionRepo: sessionRepo,
		ratingRepo:  ratingRepo,
	}
}

// SubmitRating records the client's score for a closed session and flips
// rating_submitted, which is what releases the next channel for the pair.
func (s *RatingService) SubmitRating(
	ctx context.Context,
	clientID int64,
	sessionID int64,
	score int,
	feedback *string,
) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidInput
	}
	if feedback != nil {
		trimmed := strings.TrimSpace(*feedback)
		if trimmed == "" {
			feedback = nil
		} else {
			feedback = &trimmed
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewChatSessionRepository(tx)
	txRatingRepo := repository.NewRatingRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ClientID != clientID {
		return nil, ErrForbidden
	}
	if !sessionClosed(session, time.Now().UTC()) {
		return nil, ErrInvalidStateTransition
	}
	if session.RatingSubmitted {
		return nil, ErrAlreadyRated
	}

	rating, err := txRatingRepo.Create(ctx, sessionID, session.ConsultantID, session.ClientID, score, feedback)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyRated
		}
		return nil, err
	}

	if err := txSessionRepo.SetRatingSubmitted(ctx, sessionID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return rating, nil
}

func (s *RatingService) GetSessionRating(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.Rating, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch role {
	case models.RoleClient:
		if session.ClientID != actorID {
			return nil, ErrForbidden
		}
	case models.RoleConsultant:
		if session.ConsultantID != actorID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}

	return s.ratingRepo.GetBySessionID(ctx, sessionID)
}
