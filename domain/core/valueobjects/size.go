package valueobjects

import (
	"canvas2/domain/config"
	pkgerrors "canvas2/pkg/errors"
)

// Size is a value object representing node dimensions in canvas units
type Size struct {
	width  float64
	height float64
}

// NewSize creates a size clamped to the default configuration bounds
func NewSize(width, height float64) (Size, error) {
	return NewSizeWithConfig(width, height, config.DefaultDomainConfig())
}

// NewSizeWithConfig creates a size validated against configured bounds
func NewSizeWithConfig(width, height float64, cfg *config.DomainConfig) (Size, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if !isValidCoordinate(width) || !isValidCoordinate(height) {
		return Size{}, pkgerrors.NewValidationError("invalid dimensions: must be finite numbers")
	}
	if width < cfg.MinNodeWidth || width > cfg.MaxNodeWidth {
		return Size{}, pkgerrors.NewValidationError("node width out of bounds")
	}
	if height < cfg.MinNodeHeight || height > cfg.MaxNodeHeight {
		return Size{}, pkgerrors.NewValidationError("node height out of bounds")
	}

	return Size{width: width, height: height}, nil
}

// RawSize reconstructs a stored size without re-validating against the
// current configuration. Bounds were enforced when the size was created;
// tightening the config later must not corrupt loads.
func RawSize(width, height float64) Size {
	return Size{width: width, height: height}
}

// DefaultSize returns the configured default node size
func DefaultSize(cfg *config.DomainConfig) Size {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return Size{width: cfg.DefaultNodeWidth, height: cfg.DefaultNodeHeight}
}

// Width returns the width
func (s Size) Width() float64 {
	return s.width
}

// Height returns the height
func (s Size) Height() float64 {
	return s.height
}

// Equals checks if two sizes are equal
func (s Size) Equals(other Size) bool {
	return s.width == other.width && s.height == other.height
}

// IsZero checks if the size is the zero value
func (s Size) IsZero() bool {
	return s.width == 0 && s.height == 0
}
