package steps

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/search"
	"github.com/tripflow/tripflow/types"
)

// replacementWish pulls the desired-replacement tail out of a swap request
// ("replace the morning walk with something indoors" -> "something indoors").
var replacementWish = regexp.MustCompile(`(?i)(?:with|for)\s+(.+?)\s*$`)

// ReplacementFinder researches a concrete substitute for a component the
// user asked to swap out. The first backend with a usable result wins,
// matching how the section steps fail over.
type ReplacementFinder struct {
	clients []search.Client
	logger  *zap.Logger
}

// NewReplacementFinder creates a finder over the given search backends.
func NewReplacementFinder(clients []search.Client, logger *zap.Logger) *ReplacementFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplacementFinder{
		clients: clients,
		logger:  logger.With(zap.String("component", "replacement_finder")),
	}
}

// FindReplacement searches for an alternative matching the user's request
// and shapes the best hit into a component for the vacated position.
func (f *ReplacementFinder) FindReplacement(ctx context.Context, st *types.State, target types.Component, request string) (types.Component, error) {
	dest := strings.TrimSpace(st.Extracted.Destination)
	if dest == "" {
		return types.Component{}, types.NewError(types.ErrStepFailed, "no destination to research")
	}

	want := "alternatives to " + target.Name
	if m := replacementWish.FindStringSubmatch(request); m != nil {
		want = strings.TrimSpace(m[1])
	}
	query := fmt.Sprintf("%s in %s", want, dest)

	var lastErr error
	for _, client := range f.clients {
		links, err := client.Search(ctx, query, 3)
		if err != nil {
			f.logger.Warn("search backend failed",
				zap.String("backend", client.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if len(links) == 0 {
			continue
		}
		hit := links[0]
		f.logger.Debug("replacement found",
			zap.String("query", query),
			zap.String("title", hit.Title),
		)
		return types.Component{
			Kind:        target.Kind,
			Name:        hit.Title,
			Description: hit.Snippet,
			Fields:      map[string]string{"source_url": hit.URL},
		}, nil
	}

	if lastErr != nil {
		return types.Component{}, types.NewError(types.ErrStepFailed, "all search backends failed").WithCause(lastErr)
	}
	return types.Component{}, types.NewError(types.ErrStepFailed, "no replacement candidates found")
}
