package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GenerateCount is the number of products created per Generate call.
const GenerateCount = 100

// GeneratedMessage accompanies a successful Generate call.
const GeneratedMessage = "Products generated successfully"

var (
	categories   = []string{"Electronics", "Clothing", "Home & Garden", "Sports", "Books", "Toys", "Food & Beverage"}
	brands       = []string{"TechPro", "StyleMax", "HomeEssentials", "SportsFit", "ReadWell", "PlayFun", "GourmetChoice"}
	adjectives   = []string{"Premium", "Deluxe", "Classic", "Modern", "Vintage", "Professional", "Advanced", "Essential"}
	productTypes = []string{"Widget", "Device", "Gadget", "Tool", "Kit", "Set", "Bundle", "Collection"}
)

// Service generates and lists catalog products.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewService builds Service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		repo:   repo,
		logger: logger,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:    time.Now,
	}
}

// Generate inserts GenerateCount random products. SKU sequence numbers
// continue after the current row count; the repository allocates the range.
func (s *Service) Generate(ctx context.Context) (GenerateResult, error) {
	now := s.now().UTC()
	var count int
	err := s.repo.AppendBatch(ctx, func(firstSeq int) []Product {
		products := s.randomBatch(firstSeq, now)
		count = len(products)
		return products
	})
	if err != nil {
		return GenerateResult{}, err
	}

	s.logger.InfoContext(ctx, "catalog products generated", slog.Int("count", count))
	return GenerateResult{Message: GeneratedMessage, Count: count}, nil
}

// List returns products matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) randomBatch(firstSeq int, now time.Time) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := make([]Product, 0, GenerateCount)
	for i := 0; i < GenerateCount; i++ {
		products = append(products, s.randomProduct(firstSeq+i, now))
	}
	return products
}

// randomProduct requires s.mu.
func (s *Service) randomProduct(seq int, now time.Time) Product {
	category := pick(s.rng, categories)
	brand := pick(s.rng, brands)
	adjective := pick(s.rng, adjectives)
	kind := pick(s.rng, productTypes)

	return Product{
		ID:   uuid.New(),
		Name: fmt.Sprintf("%s %s %d", adjective, kind, seq),
		Description: fmt.Sprintf("High-quality %s %s from %s. Perfect for %s enthusiasts.",
			strings.ToLower(adjective), strings.ToLower(kind), brand, strings.ToLower(category)),
		Category:      category,
		Brand:         brand,
		Price:         math.Round((s.rng.Float64()*999+1)*100) / 100,
		StockQuantity: s.rng.IntN(500) + 1,
		SKU:           skuFor(brand, category, seq),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func skuFor(brand, category string, seq int) string {
	return fmt.Sprintf("SKU-%s-%s-%05d", prefix3(brand), prefix3(category), seq)
}

func prefix3(s string) string {
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}
