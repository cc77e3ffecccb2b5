package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/manokeeper/internal/client/client"
	"github.com/dmitrijs2005/manokeeper/internal/client/keys"
	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/client/rotation"
	"github.com/dmitrijs2005/manokeeper/internal/cryptox"
	"github.com/dmitrijs2005/manokeeper/internal/logging"
)

var (
	ErrNotAdmin        = errors.New("only administrators can change the encryption key")
	ErrNotHealthcare   = errors.New("only healthcare professionals can change an existing encryption key")
	ErrWrongCurrentKey = errors.New("the current key does not open this organisation's data")
)

// RotationService prepares key rotation sessions for one organisation.
type RotationService struct {
	api            client.Client
	keys           *keys.Manager
	journal        rotation.OrphanJournal
	log            logging.Logger
	organisationID string
	userID         string
	derive         func(passphrase string) []byte
}

func NewRotationService(api client.Client, km *keys.Manager, journal rotation.OrphanJournal, log logging.Logger, organisationID, userID string) *RotationService {
	return &RotationService{
		api:            api,
		keys:           km,
		journal:        journal,
		log:            log,
		organisationID: organisationID,
		userID:         userID,
		derive:         cryptox.DeriveKey,
	}
}

// Session is a signed-in user about to rotate an organisation's key.
type Session struct {
	User         *models.User
	Organisation *models.Organisation
	Rotation     *rotation.Orchestrator
}

// CanRotate applies the organisation rules: administrators only, and once
// data is encrypted, only healthcare professionals.
func CanRotate(u *models.User, org *models.Organisation) error {
	if u.Role != models.RoleAdmin {
		return ErrNotAdmin
	}
	if org.EncryptionEnabled && !u.HealthcareProfessional {
		return ErrNotHealthcare
	}
	return nil
}

// Open loads the caller and the organisation and checks the caller may rotate.
func (s *RotationService) Open(ctx context.Context, opts ...rotation.Option) (*Session, error) {
	u, err := s.api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	org, err := s.api.GetOrganisation(ctx, s.organisationID)
	if err != nil {
		return nil, fmt.Errorf("load organisation: %w", err)
	}
	if err := CanRotate(u, org); err != nil {
		return nil, err
	}

	userID := s.userID
	if userID == "" {
		userID = u.ID
	}

	base := []rotation.Option{rotation.WithLogger(s.log)}
	if s.journal != nil {
		base = append(base, rotation.WithJournal(s.journal))
	}
	return &Session{
		User:         u,
		Organisation: org,
		Rotation:     rotation.NewOrchestrator(s.api, s.keys, org, userID, append(base, opts...)...),
	}, nil
}

// Unlock installs the organisation's current key from passphrase after
// checking it against the stored verification key. Keys shorter than the
// current minimum are accepted here: they predate it.
func (s *RotationService) Unlock(ctx context.Context, sess *Session, passphrase string) error {
	if !sess.Organisation.EncryptionEnabled {
		s.keys.Reset()
		return nil
	}
	passphrase = strings.TrimSpace(passphrase)
	if passphrase == "" {
		return fmt.Errorf("%w: current key is required", rotation.ErrValidation)
	}

	key := s.derive(passphrase)
	if canary := sess.Organisation.EncryptedVerificationKey; canary != "" {
		if !cryptox.CheckVerificationKey(canary, key) {
			return ErrWrongCurrentKey
		}
	} else {
		s.log.Warn(ctx, "organisation has no verification key, current key not checked")
	}

	_, err := s.keys.SetActive(key, keys.SetOptions{NeedsDerivation: false})
	return err
}

// Inventory counts what a rotation will touch and sets it as the session's
// progress total.
func (s *RotationService) Inventory(ctx context.Context, sess *Session) (*rotation.Inventory, error) {
	key, _ := s.keys.Active()
	inv, err := rotation.TakeInventory(ctx, s.api, sess.Organisation.ID, key)
	if err != nil {
		return nil, err
	}
	sess.Rotation.SetInventory(inv.Total())
	return inv, nil
}
