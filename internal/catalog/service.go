package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prudhivi99/designify-catalog/internal/client"
	"github.com/prudhivi99/designify-catalog/internal/models"
	"github.com/prudhivi99/designify-catalog/internal/transform"
)

const (
	// DefaultRelatedLimit is used when a related query asks for no limit.
	DefaultRelatedLimit = 2

	defaultMaxConcurrentDetails = 4
)

var ErrNotFound = errors.New("product not found")

// Upstream is the part of the product API the catalog reads from.
type Upstream interface {
	DetailsSource
	Products(ctx context.Context) client.Result
	ProductByID(ctx context.Context, id int) client.Result
}

// Service answers catalog queries for the page shell. The Fetch* methods
// report failures; the List*/Get* methods never fail and fall back to
// empty or absent results.
type Service struct {
	upstream Upstream
	details  *DetailsResolver
	logger   *zap.Logger

	maxConcurrentDetails int

	rngMu sync.Mutex
	rng   *rand.Rand
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRand fixes the random source used for related products.
func WithRand(r *rand.Rand) ServiceOption {
	return func(s *Service) { s.rng = r }
}

func WithMaxConcurrentDetails(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrentDetails = n
		}
	}
}

func NewService(upstream Upstream, opts ...ServiceOption) *Service {
	s := &Service{
		upstream:             upstream,
		logger:               zap.NewNop(),
		maxConcurrentDetails: defaultMaxConcurrentDetails,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.details = NewDetailsResolver(upstream, s.logger)
	return s
}

// FetchAll returns every product in the catalog.
func (s *Service) FetchAll(ctx context.Context) ([]models.Product, error) {
	res := s.upstream.Products(ctx)
	if !res.Success {
		return nil, fmt.Errorf("failed to fetch products: %w", res.Err)
	}

	items, err := models.DecodeProductList(res.Data)
	if err != nil {
		return nil, &client.DecodeError{URL: "/products", Err: err}
	}

	products := make([]models.Product, 0, len(items))
	for i, item := range items {
		var raw models.RawProduct
		if err := json.Unmarshal(item, &raw); err != nil {
			s.logger.Warn("⚠️ Skipping malformed product record", zap.Int("index", i), zap.Error(err))
			continue
		}
		products = append(products, transform.Product(raw))
	}

	return products, nil
}

// FetchByID looks a product up through the single product endpoint and
// falls back to scanning the list when that endpoint misbehaves.
func (s *Service) FetchByID(ctx context.Context, id int) (models.Product, error) {
	res := s.upstream.ProductByID(ctx, id)
	if res.Success {
		raw, err := models.DecodeProduct(res.Data)
		if err == nil {
			return transform.Product(raw), nil
		}
		s.logger.Warn("⚠️ Undecodable product, scanning list", zap.Int("id", id), zap.Error(err))
	} else if client.IsNotFound(res.Err) {
		return models.Product{}, ErrNotFound
	} else {
		s.logger.Warn("⚠️ Product endpoint failed, scanning list", zap.Int("id", id), zap.Error(res.Err))
	}

	products, err := s.FetchAll(ctx)
	if err != nil {
		return models.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, ErrNotFound
}

// FetchBySlug finds a product by slug in the product list.
func (s *Service) FetchBySlug(ctx context.Context, slug string) (models.Product, error) {
	if slug == "" {
		return models.Product{}, ErrNotFound
	}

	products, err := s.FetchAll(ctx)
	if err != nil {
		return models.Product{}, err
	}
	for _, p := range products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return models.Product{}, ErrNotFound
}

// FetchRelated returns up to limit randomly chosen products other than
// currentID.
func (s *Service) FetchRelated(ctx context.Context, currentID, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	products, err := s.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.ID != currentID {
			candidates = append(candidates, p)
		}
	}

	s.shuffle(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// FetchFull returns the product with its details merged in. A product
// without a details id, or whose details cannot be fetched, is returned as
// listed.
func (s *Service) FetchFull(ctx context.Context, slug string) (models.Product, error) {
	product, err := s.FetchBySlug(ctx, slug)
	if err != nil {
		return models.Product{}, err
	}

	if !product.HasDetails() {
		return product, nil
	}

	details, err := s.details.Fetch(ctx, product.DetailsID)
	if err != nil {
		s.logger.Warn("⚠️ Details unavailable, serving base product",
			zap.String("slug", slug),
			zap.Int("details_id", product.DetailsID),
			zap.Error(err),
		)
		return product, nil
	}

	product.Features = details.Features
	product.HowTo = details.HowTo
	return product, nil
}

// FetchAllFull returns every product with details merged in. Details are
// fetched concurrently; products keep their list order. A details failure
// leaves that product as listed; only cancellation of ctx fails the call.
func (s *Service) FetchAllFull(ctx context.Context) ([]models.Product, error) {
	products, err := s.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(s.maxConcurrentDetails)

	for i := range products {
		if !products[i].HasDetails() {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			details, err := s.details.Fetch(ctx, products[i].DetailsID)
			if err != nil {
				s.logger.Warn("⚠️ Details unavailable, serving base product",
					zap.Int("id", products[i].ID),
					zap.Int("details_id", products[i].DetailsID),
					zap.Error(err),
				)
				return nil
			}
			products[i].Features = details.Features
			products[i].HowTo = details.HowTo
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch product details: %w", err)
	}

	return products, nil
}

// ListAll is FetchAll that yields an empty list on failure.
func (s *Service) ListAll(ctx context.Context) []models.Product {
	products, err := s.FetchAll(ctx)
	if err != nil {
		s.logger.Warn("⚠️ Failed to list products", zap.Error(err))
		return []models.Product{}
	}
	return products
}

// ListAllFull is FetchAllFull that yields an empty list on failure.
func (s *Service) ListAllFull(ctx context.Context) []models.Product {
	products, err := s.FetchAllFull(ctx)
	if err != nil {
		s.logger.Warn("⚠️ Failed to list full products", zap.Error(err))
		return []models.Product{}
	}
	return products
}

func (s *Service) GetByID(ctx context.Context, id int) (models.Product, bool) {
	product, err := s.FetchByID(ctx, id)
	return s.found(product, err, zap.Int("id", id))
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (models.Product, bool) {
	product, err := s.FetchBySlug(ctx, slug)
	return s.found(product, err, zap.String("slug", slug))
}

func (s *Service) GetFull(ctx context.Context, slug string) (models.Product, bool) {
	product, err := s.FetchFull(ctx, slug)
	return s.found(product, err, zap.String("slug", slug))
}

// GetRelated is FetchRelated that yields an empty list on failure.
func (s *Service) GetRelated(ctx context.Context, currentID, limit int) []models.Product {
	products, err := s.FetchRelated(ctx, currentID, limit)
	if err != nil {
		s.logger.Warn("⚠️ Failed to load related products", zap.Int("id", currentID), zap.Error(err))
		return []models.Product{}
	}
	return products
}

func (s *Service) found(product models.Product, err error, key zap.Field) (models.Product, bool) {
	switch {
	case err == nil:
		return product, true
	case errors.Is(err, ErrNotFound):
		s.logger.Debug("🔍 Product not found", key)
	default:
		s.logger.Warn("⚠️ Failed to load product", key, zap.Error(err))
	}
	return models.Product{}, false
}

func (s *Service) shuffle(products []models.Product) {
	swap := func(i, j int) { products[i], products[j] = products[j], products[i] }

	if s.rng == nil {
		rand.Shuffle(len(products), swap)
		return
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(products), swap)
}
