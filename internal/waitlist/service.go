package waitlist

import (
	"context"
	"strings"

	"github.com/pilotup/pilotup/internal/loops"
	"github.com/pilotup/pilotup/internal/validation"
)

// Service validates and forwards waitlist signups. Duplicate detection and
// rate limiting live in the provider; this layer only gates on format.
type Service struct {
	client *loops.Client
	siteID string
}

func NewService(client *loops.Client, siteID string) *Service {
	return &Service{client: client, siteID: siteID}
}

// BuildSource composes the attribution string sent to the provider:
// "<site-id>" alone, or "<site-id>, <tag>" when a tag is present.
func BuildSource(siteID, tag string) string {
	if tag == "" {
		return siteID
	}
	return siteID + ", " + tag
}

// Submit forwards one signup. A failed email gate returns before any HTTP
// call is made. Returns the composed source for the caller's audit trail.
func (s *Service) Submit(ctx context.Context, email, sourceTag string) (string, error) {
	email = strings.TrimSpace(email)
	if err := validation.ValidateSubmissionEmail(email); err != nil {
		return "", err
	}

	tag, err := validation.NormalizeSourceTag(sourceTag)
	if err != nil {
		return "", err
	}

	source := BuildSource(s.siteID, tag)
	if err := s.client.SubmitWaitlist(ctx, email, source); err != nil {
		return source, err
	}

	return source, nil
}
