package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prudhivi99/designify-catalog/internal/client"
	"github.com/prudhivi99/designify-catalog/internal/models"
	"github.com/prudhivi99/designify-catalog/internal/transform"
)

var ErrInvalidDetailsID = errors.New("details id must be positive")

// DetailsSource fetches the raw details resource.
type DetailsSource interface {
	Details(ctx context.Context, detailsID int) client.Result
}

// Details holds the normalized feature and how-to lists of one product.
type Details struct {
	Features []models.ProductFeature
	HowTo    []models.ProductHowToStep
}

func emptyDetails() Details {
	return Details{
		Features: []models.ProductFeature{},
		HowTo:    []models.ProductHowToStep{},
	}
}

type DetailsResolver struct {
	source DetailsSource
	logger *zap.Logger
}

func NewDetailsResolver(source DetailsSource, logger *zap.Logger) *DetailsResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetailsResolver{source: source, logger: logger}
}

// Fetch returns the details of detailsID or the reason they could not be
// fetched.
func (r *DetailsResolver) Fetch(ctx context.Context, detailsID int) (Details, error) {
	if detailsID <= 0 {
		return emptyDetails(), ErrInvalidDetailsID
	}

	res := r.source.Details(ctx, detailsID)
	if !res.Success {
		return emptyDetails(), fmt.Errorf("failed to fetch details %d: %w", detailsID, res.Err)
	}

	raw, err := models.DecodeDetails(res.Data)
	if err != nil {
		return emptyDetails(), &client.DecodeError{URL: fmt.Sprintf("/details/%d", detailsID), Err: err}
	}

	if skipped := raw.Skipped(); skipped > 0 {
		r.logger.Warn("⚠️ Skipping malformed details entries",
			zap.Int("details_id", detailsID),
			zap.Int("skipped", skipped),
		)
	}

	return Details{
		Features: transform.Features(raw.Features.Items),
		HowTo:    transform.HowToSteps(raw.HowTo.Items),
	}, nil
}

// Resolve is Fetch with failures logged and replaced by empty lists.
func (r *DetailsResolver) Resolve(ctx context.Context, detailsID int) Details {
	details, err := r.Fetch(ctx, detailsID)
	if err != nil {
		r.logger.Warn("⚠️ Failed to resolve product details",
			zap.Int("details_id", detailsID),
			zap.Error(err),
		)
		return emptyDetails()
	}
	return details
}
