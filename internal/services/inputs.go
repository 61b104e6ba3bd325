package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/pkg/utils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var validEmail = is.EmailFormat.Error("must be a valid email address")

// required rejects empty and whitespace-only values.
var required = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.Required.Error("is required").Validate(value)
	}
	if strings.TrimSpace(s) == "" {
		return validation.ErrRequired.SetMessage("is required")
	}
	return nil
})

// passwordPolicy adapts utils.ValidatePassword to an ozzo rule.
var passwordPolicy = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	return utils.ValidatePassword("password", s)
})

var usernamePolicy = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	return utils.ValidateUsername(s)
})

type RegisterInput struct {
	Fullname   string `json:"fullname"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Fullname, required),
		validation.Field(&in.Email, required, validEmail),
		validation.Field(&in.Username, required, usernamePolicy),
		validation.Field(&in.Password, required, passwordPolicy),
	)
}

// LoginInput accepts an email or a username in Email.
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, required),
		validation.Field(&in.Password, required),
	)
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (in ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, required),
		validation.Field(&in.NewPassword, required, passwordPolicy),
	)
}

type UpdateAccountInput struct {
	NewName         string `json:"newName"`
	NewUsername     string `json:"newUsername"`
	NewEmail        string `json:"newEmail"`
	NewNumber       string `json:"newNumber"`
	CurrentPassword string `json:"currentPassword"`
}

func (in UpdateAccountInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.NewName, required),
		validation.Field(&in.NewUsername, required, usernamePolicy),
		validation.Field(&in.NewEmail, required, validEmail),
		validation.Field(&in.CurrentPassword, required),
	)
}

type ForgotPasswordInput struct {
	Email string `json:"email"`
}

func (in ForgotPasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, required, validEmail),
	)
}

type ResetPasswordInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (in ResetPasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Token, required),
		validation.Field(&in.NewPassword, required, passwordPolicy),
	)
}

type validatable interface {
	Validate() error
}

// validate runs in.Validate and converts failures into an InvalidArgument
// error carrying one message per field.
func validate(in validatable) error {
	err := in.Validate()
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return apperror.Wrap(err, apperror.Internal, "Something went wrong")
	}

	fields := make(map[string]string, len(errs))
	keys := make([]string, 0, len(errs))
	missing := false
	for field, fe := range errs {
		fields[field] = fe.Error()
		keys = append(keys, field)
		var ve validation.Error
		if errors.As(fe, &ve) && ve.Code() == validation.ErrRequired.Code() {
			missing = true
		}
	}
	if missing {
		return apperror.Validation("All fields are required", fields)
	}

	sort.Strings(keys)
	var pe *utils.ValidationError
	if errors.As(errs[keys[0]], &pe) {
		return apperror.Validation(pe.Message, fields)
	}
	return apperror.Validation(keys[0]+" "+fields[keys[0]], fields)
}
