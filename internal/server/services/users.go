package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/server/auth"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/repomanager"
)

type UserService struct {
	db                  *sql.DB
	repomanager         repomanager.RepositoryManager
	secretKey           []byte
	accessTokenValidity time.Duration
}

func NewUserService(db *sql.DB, repomanager repomanager.RepositoryManager, secretKey []byte, accessTokenValidity time.Duration) *UserService {
	return &UserService{db: db, repomanager: repomanager, secretKey: secretKey, accessTokenValidity: accessTokenValidity}
}

// Me returns the authenticated user.
func (s *UserService) Me(ctx context.Context, id auth.Identity) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if u.Organisation != id.OrganisationID {
		return nil, ErrForbidden
	}
	return u, nil
}

// IssueToken mints an access token carrying the user's current role.
func (s *UserService) IssueToken(ctx context.Context, userID string) (string, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return auth.GenerateToken(auth.Identity{
		UserID:                 u.ID,
		OrganisationID:         u.Organisation,
		Role:                   u.Role,
		HealthcareProfessional: u.HealthcareProfessional,
	}, s.secretKey, s.accessTokenValidity)
}
