package valueobjects

import (
	"strings"

	pkgerrors "canvas2/pkg/errors"
)

// ContentKind is an opaque tag describing what a node's content is.
// The core never inspects it; kind-specific behavior lives in the
// rendering collaborator.
type ContentKind string

// NewContentKind creates a content kind with validation
func NewContentKind(kind string) (ContentKind, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "", pkgerrors.NewValidationError("content kind cannot be empty")
	}
	return ContentKind(kind), nil
}

// String returns the string representation
func (k ContentKind) String() string {
	return string(k)
}
