// Package services – InsightsService
//
// This file assembles the bundle handed to the AI analysis collaborator:
// the questionnaire's summary, its full distribution, and a bounded slice
// of recent raw responses for prompt templating. No AI calls happen here.
package services

import (
	"context"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// InsightsBundle is the prompt-templating input for an external AI
// analysis collaborator.
type InsightsBundle struct {
	Summary      *Summary          `json:"summary"`
	Distribution *Distribution     `json:"distribution"`
	Responses    []domain.Response `json:"responses"`
}

// InsightsService builds analysis bundles from existing services.
type InsightsService struct {
	Analytics *AnalyticsService
	Responses *ResponseService
	// MaxResponses caps the raw responses included in a bundle.
	MaxResponses int
}

// NewInsightsService constructs an InsightsService.
func NewInsightsService(a *AnalyticsService, r *ResponseService, maxResponses int) *InsightsService {
	if maxResponses <= 0 {
		maxResponses = 50
	}
	return &InsightsService{Analytics: a, Responses: r, MaxResponses: maxResponses}
}

// Bundle returns {summary, distribution, responses[<=MaxResponses]} for
// the questionnaire.
func (s *InsightsService) Bundle(ctx context.Context, tenantID, slug string, f Filters) (*InsightsBundle, error) {
	sum, err := s.Analytics.Summary(ctx, tenantID, slug, f)
	if err != nil {
		return nil, err
	}
	dist, err := s.Analytics.Distribution(ctx, tenantID, slug, f)
	if err != nil {
		return nil, err
	}
	recent, err := s.Responses.Recent(ctx, tenantID, slug, s.MaxResponses)
	if err != nil {
		return nil, err
	}
	return &InsightsBundle{Summary: sum, Distribution: dist, Responses: recent}, nil
}
