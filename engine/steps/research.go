package steps

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/search"
	"github.com/tripflow/tripflow/types"
)

// maxResultsPerSection caps how many deduplicated links a section keeps.
const maxResultsPerSection = 12

// ResearchStep fills one plan section from web search results.
type ResearchStep struct {
	section types.SectionName
	clients []search.Client
	logger  *zap.Logger
}

// NewTransportStep researches routes and transport options.
func NewTransportStep(clients []search.Client, logger *zap.Logger) *ResearchStep {
	return newResearchStep(types.SectionTransport, clients, logger)
}

// NewStaysStep researches accommodation.
func NewStaysStep(clients []search.Client, logger *zap.Logger) *ResearchStep {
	return newResearchStep(types.SectionStays, clients, logger)
}

// NewActivitiesStep researches things to do and places to eat.
func NewActivitiesStep(clients []search.Client, logger *zap.Logger) *ResearchStep {
	return newResearchStep(types.SectionActivities, clients, logger)
}

func newResearchStep(section types.SectionName, clients []search.Client, logger *zap.Logger) *ResearchStep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResearchStep{
		section: section,
		clients: clients,
		logger:  logger.With(zap.String("component", "research_step"), zap.String("section", string(section))),
	}
}

// Section returns the plan section this step fills.
func (s *ResearchStep) Section() types.SectionName { return s.section }

// Run queries the configured search backends and returns the section patch.
// The first backend that returns results wins; all backends failing is a
// step error.
func (s *ResearchStep) Run(ctx context.Context, st *types.State) (*types.Patch, error) {
	query := s.buildQuery(st.Extracted)
	if query == "" {
		return nil, types.NewError(types.ErrStepFailed, "no destination to research")
	}

	var lastErr error
	for _, client := range s.clients {
		links, err := client.Search(ctx, query, maxResultsPerSection)
		if err != nil {
			s.logger.Warn("search backend failed",
				zap.String("backend", client.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if len(links) == 0 {
			continue
		}
		links = search.Dedupe(links, maxResultsPerSection)
		s.logger.Debug("section researched",
			zap.String("backend", client.Name()),
			zap.Int("results", len(links)),
		)
		return &types.Patch{
			Summary: s.summarize(st.Extracted, len(links)),
			Results: links,
		}, nil
	}

	if lastErr != nil {
		return nil, types.NewError(types.ErrStepFailed, "all search backends failed").WithCause(lastErr)
	}
	return nil, types.NewError(types.ErrStepFailed, "no search results for section")
}

func (s *ResearchStep) buildQuery(info types.ExtractedInfo) string {
	dest := strings.TrimSpace(info.Destination)
	if dest == "" {
		return ""
	}
	switch s.section {
	case types.SectionTransport:
		origin := strings.TrimSpace(info.Origin)
		if origin != "" {
			return fmt.Sprintf("how to travel from %s to %s routes cost duration", origin, dest)
		}
		return fmt.Sprintf("transport options to %s", dest)
	case types.SectionStays:
		q := fmt.Sprintf("best places to stay in %s", dest)
		if info.TravelPack != "" {
			q += " for " + info.TravelPack
		}
		return q
	case types.SectionActivities:
		q := fmt.Sprintf("top things to do and restaurants in %s", dest)
		if info.Purpose != "" {
			q += " " + info.Purpose
		}
		return q
	default:
		return ""
	}
}

func (s *ResearchStep) summarize(info types.ExtractedInfo, n int) string {
	switch s.section {
	case types.SectionTransport:
		return fmt.Sprintf("Found %d transport references for %s to %s.", n, info.Origin, info.Destination)
	case types.SectionStays:
		return fmt.Sprintf("Found %d accommodation references in %s.", n, info.Destination)
	default:
		return fmt.Sprintf("Found %d activity and dining references in %s.", n, info.Destination)
	}
}
