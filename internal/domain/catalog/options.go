// Package catalog maps action kinds to their point values.
package catalog

// Option applies a configuration option to the StaticCatalog.
type Option func(*StaticCatalog)

// WithActions replaces the action table wholesale. Entries with negative
// point values are dropped; zero is allowed for actions that count but do
// not score. An empty map is ignored so the defaults survive.
func WithActions(actions map[string]int64) Option {
	return func(c *StaticCatalog) {
		if len(actions) == 0 {
			return
		}
		points := make(map[string]int64, len(actions))
		for kind, value := range actions {
			if kind == "" || value < 0 {
				continue
			}
			points[kind] = value
		}
		if len(points) > 0 {
			c.points = points
		}
	}
}
