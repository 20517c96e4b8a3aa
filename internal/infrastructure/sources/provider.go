// Package sources supplies feed lists and trending boosts from static
// configuration.
package sources

import (
	"context"

	"BriefCast/internal/domain"
	"BriefCast/internal/ports"
)

// StaticProvider serves a fixed source list loaded from configuration.
type StaticProvider struct {
	sources []domain.Source
}

var _ ports.SourceProvider = (*StaticProvider)(nil)

// NewStaticProvider wraps the configured sources.
func NewStaticProvider(sources []domain.Source) *StaticProvider {
	return &StaticProvider{sources: sources}
}

// Sources returns the configured list unchanged.
func (p *StaticProvider) Sources(ctx context.Context) ([]domain.Source, error) {
	return p.sources, nil
}

// StaticTrends serves a fixed keyword -> boost map from configuration.
type StaticTrends struct {
	boosts map[string]float64
}

var _ ports.TrendProvider = (*StaticTrends)(nil)

// NewStaticTrends wraps the configured boost map.
func NewStaticTrends(boosts map[string]float64) *StaticTrends {
	return &StaticTrends{boosts: boosts}
}

// TrendingBoosts returns the configured map unchanged.
func (p *StaticTrends) TrendingBoosts(ctx context.Context) (map[string]float64, error) {
	return p.boosts, nil
}
