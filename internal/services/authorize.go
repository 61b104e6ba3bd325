package services

import (
	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
)

// Authorize decides whether u may act with role. A nil user means no
// principal was attached to the request.
func Authorize(u *models.User, role models.Role) error {
	if u == nil {
		return apperror.New(apperror.Unauthorized, "Unauthorized request")
	}
	if !u.Role.Has(role) {
		return apperror.New(apperror.Forbidden, "You are not allowed to access this resource")
	}
	return nil
}
