package service

import (
	"context"
	"sort"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

const (
	DefaultRecommendationLimit = 10
	MaxRecommendationLimit     = 50
)

type CatalogService interface {
	// Recommend ranks products by keyword overlap between their name and a
	// three or four word query.
	Recommend(ctx context.Context, query string, limit int) ([]domain.Recommendation, error)
}

type catalogService struct {
	productRepo repo.ProductRepo
}

func NewCatalogService(productRepo repo.ProductRepo) CatalogService {
	return &catalogService{productRepo: productRepo}
}

func (s *catalogService) Recommend(ctx context.Context, query string, limit int) ([]domain.Recommendation, error) {
	out := []domain.Recommendation{}

	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < 3 {
		return out, nil
	}
	words := strings.Fields(query)
	if len(words) < 3 || len(words) > 4 {
		return out, nil
	}
	query = strings.Join(words, " ")

	switch {
	case limit <= 0:
		limit = DefaultRecommendationLimit
	case limit > MaxRecommendationLimit:
		limit = MaxRecommendationLimit
	}

	products, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		if score := similarity(strings.ToLower(p.Name), query, words); score > 0 {
			out = append(out, domain.Recommendation{Product: p, SimilarityScore: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SimilarityScore > out[j].SimilarityScore
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// similarity scores name against the lowercased query:
// 10 per contained word, 15 per contained adjacent pair,
// 25 for the whole query, 20 when every word matched.
func similarity(name, query string, words []string) int {
	score := 0

	matched := 0
	for _, w := range words {
		if strings.Contains(name, w) {
			matched++
		}
	}
	score += matched * 10

	for i := 0; i+1 < len(words); i++ {
		if strings.Contains(name, words[i]+" "+words[i+1]) {
			score += 15
		}
	}

	if strings.Contains(name, query) {
		score += 25
	}
	if matched == len(words) {
		score += 20
	}
	return score
}
