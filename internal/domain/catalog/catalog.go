// Package catalog maps action kinds to their point values.
//
// The catalog is a pure lookup: it is populated once at construction and
// never mutated afterwards, so reads need no synchronization.
package catalog

import (
	"context"
	"sort"
)

// Default point values used when no configuration is provided.
const (
	defaultQuestCompletePoints = 50
	defaultAchievementPoints   = 25
	defaultDailyLoginPoints    = 5
)

// Catalog answers "how many points is this action worth".
type Catalog interface {
	// Points returns the point value for kind. The second return is false
	// when kind is not in the catalog.
	Points(ctx context.Context, kind string) (int64, bool)

	// Kinds returns the known action kinds in lexical order.
	Kinds(ctx context.Context) []string
}

// StaticCatalog implements Catalog over a fixed map.
type StaticCatalog struct {
	points map[string]int64
}

// New creates a catalog with configuration options. Without options the
// catalog holds the default action set.
func New(opts ...Option) *StaticCatalog {
	c := &StaticCatalog{
		points: map[string]int64{
			"quest_complete": defaultQuestCompletePoints,
			"achievement":    defaultAchievementPoints,
			"daily_login":    defaultDailyLoginPoints,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Points returns the point value for kind.
func (c *StaticCatalog) Points(ctx context.Context, kind string) (int64, bool) {
	v, ok := c.points[kind]
	return v, ok
}

// Kinds returns the known action kinds in lexical order.
func (c *StaticCatalog) Kinds(ctx context.Context) []string {
	kinds := make([]string, 0, len(c.points))
	for k := range c.points {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
