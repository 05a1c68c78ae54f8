package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Node size constraints, in canvas units
	MinNodeWidth  float64
	MinNodeHeight float64
	MaxNodeWidth  float64
	MaxNodeHeight float64

	// Default size assigned to freshly created nodes
	DefaultNodeWidth  float64
	DefaultNodeHeight float64

	// History constraints
	HistoryCapacity int
	CoalesceWindow  time.Duration

	// Validation settings
	AllowSelfEdges      bool
	AllowDuplicateEdges bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MinNodeWidth:  40,
		MinNodeHeight: 24,
		MaxNodeWidth:  2000,
		MaxNodeHeight: 2000,

		DefaultNodeWidth:  280,
		DefaultNodeHeight: 160,

		HistoryCapacity: 200,
		CoalesceWindow:  500 * time.Millisecond,

		AllowSelfEdges:      false,
		AllowDuplicateEdges: false,
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MinNodeWidth <= 0 || c.MinNodeHeight <= 0 {
		return fmt.Errorf("minimum node size must be positive")
	}
	if c.MaxNodeWidth < c.MinNodeWidth || c.MaxNodeHeight < c.MinNodeHeight {
		return fmt.Errorf("maximum node size must not be smaller than minimum")
	}
	if c.DefaultNodeWidth < c.MinNodeWidth || c.DefaultNodeWidth > c.MaxNodeWidth {
		return fmt.Errorf("default node width %f outside [%f, %f]", c.DefaultNodeWidth, c.MinNodeWidth, c.MaxNodeWidth)
	}
	if c.DefaultNodeHeight < c.MinNodeHeight || c.DefaultNodeHeight > c.MaxNodeHeight {
		return fmt.Errorf("default node height %f outside [%f, %f]", c.DefaultNodeHeight, c.MinNodeHeight, c.MaxNodeHeight)
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("history capacity must be at least 1")
	}
	if c.CoalesceWindow < 0 {
		return fmt.Errorf("coalesce window must not be negative")
	}
	return nil
}
