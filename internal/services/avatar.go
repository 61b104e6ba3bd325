package services

import (
	"path/filepath"
	"strings"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/gabriel-vasile/mimetype"
)

// MaxAvatarSize is the upload limit for avatars (3 MiB).
const MaxAvatarSize = 3 << 20

var avatarExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

var avatarMIMEs = []string{"image/jpeg", "image/png", "image/gif"}

// ValidateAvatar checks the size, the file extension and the sniffed content type.
func ValidateAvatar(filename string, data []byte) error {
	if len(data) == 0 {
		return apperror.New(apperror.InvalidArgument, "Avatar file is required")
	}
	if len(data) > MaxAvatarSize {
		return apperror.New(apperror.InvalidArgument, "Avatar must be 3MB or smaller")
	}
	if !avatarExtensions[strings.ToLower(filepath.Ext(filename))] {
		return apperror.New(apperror.InvalidArgument, "Only jpeg, jpg, png and gif images are allowed")
	}
	if !mimetype.EqualsAny(mimetype.Detect(data).String(), avatarMIMEs...) {
		return apperror.New(apperror.InvalidArgument, "Only jpeg, jpg, png and gif images are allowed")
	}
	return nil
}
