package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// UpdateProfileRequest carries the fields to change. Nil fields are left as they are.
type UpdateProfileRequest struct {
	FullName       *string `json:"full_name,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	AddressLine1   *string `json:"address_line1,omitempty"`
	AddressLine2   *string `json:"address_line2,omitempty"`
	City           *string `json:"city,omitempty"`
	State          *string `json:"state,omitempty"`
	PostalCode     *string `json:"postal_code,omitempty"`
	Country        *string `json:"country,omitempty"`
}

type ProfileService struct {
	store  repository.Store
	logger *logging.Logger
	now    func() time.Time
}

func NewProfileService(store repository.Store) *ProfileService {
	return &ProfileService{
		store:  store,
		logger: logging.NewLogger("profile-service"),
		now:    time.Now,
	}
}

// GetProfile returns the user's profile or errors.ErrNotFound.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, errors.ErrUnauthenticated
	}

	var profiles []models.Profile
	query := repository.Where(repository.Eq("user_id", userID)).Take(1)
	if err := s.store.Select(ctx, repository.TableProfiles, query, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, errors.ErrNotFound
	}
	return &profiles[0], nil
}

// UpdateProfile applies req to the user's profile, creating it when missing.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.Profile, error) {
	if userID == "" {
		return nil, errors.ErrUnauthenticated
	}

	values, err := profileValues(req)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	values["updated_at"] = now

	existing, err := s.GetProfile(ctx, userID)
	if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	var profile models.Profile
	if existing == nil {
		values["user_id"] = userID
		values["created_at"] = now
		if _, ok := values["full_name"]; !ok {
			values["full_name"] = ""
		}
		if _, ok := values["email"]; !ok {
			values["email"] = ""
		}
		err = s.store.Insert(ctx, repository.TableProfiles, values, &profile)
	} else {
		err = s.store.Update(ctx, repository.TableProfiles, existing.ID, values, &profile)
	}
	if err != nil {
		s.logger.Error("Failed to save profile", logging.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Profile updated", logging.Fields{"user_id": userID})
	return &profile, nil
}

func profileValues(req *UpdateProfileRequest) (repository.Values, error) {
	values := repository.Values{}
	if req == nil {
		return nil, errors.NewValidationError("profile", "no fields to update")
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, errors.NewValidationError("full_name", "full name cannot be blank")
		}
		values["full_name"] = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !strings.Contains(email, "@") {
			return nil, errors.NewValidationError("email", "invalid email address")
		}
		values["email"] = email
	}

	optional := map[string]*string{
		"phone":           req.Phone,
		"profile_picture": req.ProfilePicture,
		"address_line1":   req.AddressLine1,
		"address_line2":   req.AddressLine2,
		"city":            req.City,
		"state":           req.State,
		"postal_code":     req.PostalCode,
		"country":         req.Country,
	}
	for column, value := range optional {
		if value == nil {
			continue
		}
		// An empty string clears the field.
		if trimmed := strings.TrimSpace(*value); trimmed != "" {
			values[column] = trimmed
		} else {
			values[column] = nil
		}
	}

	if len(values) == 0 {
		return nil, errors.NewValidationError("profile", "no fields to update")
	}
	return values, nil
}
