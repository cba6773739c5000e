package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"tasktrack/internal/apierror"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateCredentials checks login input. Registration additionally
// enforces MinPasswordLength.
func ValidateCredentials(email, password string, registering bool) error {
	if err := check(Credentials{Email: strings.TrimSpace(email), Password: password}); err != nil {
		return apierror.Validationf("email and password are required")
	}
	if registering && len(password) < MinPasswordLength {
		return apierror.Validationf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateCreate checks and normalizes a create request.
func ValidateCreate(req CreateTaskRequest) (CreateTaskRequest, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := check(req); err != nil {
		return req, err
	}
	return req, nil
}

// ValidateUpdate checks a task id and partial update.
func ValidateUpdate(id string, req UpdateTaskRequest) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return apierror.Validationf("task title is required")
	}
	return check(req)
}

// ValidateID checks a task id.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apierror.Validationf("task id is required")
	}
	return nil
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required", "min":
			return apierror.Validationf("task %s is required", strings.ToLower(fe.Field()))
		default:
			return apierror.Validationf("invalid %s", strings.ToLower(fe.Field()))
		}
	}
	return apierror.Validationf("%v", err)
}
