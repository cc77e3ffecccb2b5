package services

import (
	"errors"

	"github.com/dmitrijs2005/manokeeper/internal/server/auth"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
)

// ErrForbidden is returned when the caller may not act on a resource.
var ErrForbidden = errors.New("forbidden")

func requireAdmin(id auth.Identity) error {
	if id.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func requireOrganisation(id auth.Identity, organisationID string) error {
	if id.OrganisationID != organisationID {
		return ErrForbidden
	}
	return nil
}
