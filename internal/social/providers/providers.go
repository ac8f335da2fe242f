// Package providers normalizes identity claims from the supported social
// login providers into one shape the reconciler consumes.
package providers

import (
	"meldish/internal/identity/models"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/email"
)

// Claims is the provider-independent identity payload.
type Claims struct {
	Provider      models.AuthProvider
	ExternalID    string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	PictureURL    string
}

// Normalizer converts one provider's raw claim map into Claims.
type Normalizer interface {
	Provider() models.AuthProvider
	Normalize(raw map[string]any) (*Claims, error)
}

// ForProvider returns the normalizer for a provider name.
func ForProvider(raw string) (Normalizer, error) {
	provider, err := models.ParseSocialProvider(raw)
	if err != nil {
		return nil, err
	}
	switch provider {
	case models.ProviderGoogle:
		return googleNormalizer{}, nil
	case models.ProviderLine:
		return lineNormalizer{}, nil
	default:
		return facebookNormalizer{}, nil
	}
}

// googleNormalizer maps Google OIDC claims. Google reports email_verified
// explicitly; it is trusted as given.
type googleNormalizer struct{}

func (googleNormalizer) Provider() models.AuthProvider { return models.ProviderGoogle }

func (googleNormalizer) Normalize(raw map[string]any) (*Claims, error) {
	sub := str(raw, "sub")
	if sub == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "google claims missing subject id")
	}
	return &Claims{
		Provider:      models.ProviderGoogle,
		ExternalID:    sub,
		Email:         email.Normalize(str(raw, "email")),
		EmailVerified: boolean(raw, "email_verified"),
		FirstName:     str(raw, "given_name"),
		LastName:      str(raw, "family_name"),
		PictureURL:    str(raw, "picture"),
	}, nil
}

// lineNormalizer maps LINE profile claims. LINE only exposes an email the
// user has confirmed, so a present email counts as verified.
type lineNormalizer struct{}

func (lineNormalizer) Provider() models.AuthProvider { return models.ProviderLine }

func (lineNormalizer) Normalize(raw map[string]any) (*Claims, error) {
	userID := str(raw, "userId")
	if userID == "" {
		userID = str(raw, "sub")
	}
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "line claims missing user id")
	}
	addr := email.Normalize(str(raw, "email"))
	first, last := splitDisplayName(str(raw, "displayName"))
	return &Claims{
		Provider:      models.ProviderLine,
		ExternalID:    userID,
		Email:         addr,
		EmailVerified: addr != "",
		FirstName:     first,
		LastName:      last,
		PictureURL:    str(raw, "pictureUrl"),
	}, nil
}

// facebookNormalizer maps Facebook Graph API fields. Facebook returns only
// confirmed emails, so a present email counts as verified.
type facebookNormalizer struct{}

func (facebookNormalizer) Provider() models.AuthProvider { return models.ProviderFacebook }

func (facebookNormalizer) Normalize(raw map[string]any) (*Claims, error) {
	fbID := str(raw, "id")
	if fbID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "facebook claims missing user id")
	}
	addr := email.Normalize(str(raw, "email"))
	return &Claims{
		Provider:      models.ProviderFacebook,
		ExternalID:    fbID,
		Email:         addr,
		EmailVerified: addr != "",
		FirstName:     str(raw, "first_name"),
		LastName:      str(raw, "last_name"),
		PictureURL:    str(raw, "picture"),
	}, nil
}

func str(raw map[string]any, key string) string {
	v, _ := raw[key].(string)
	return v
}

func boolean(raw map[string]any, key string) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func splitDisplayName(name string) (first, last string) {
	for i, r := range name {
		if r == ' ' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}
