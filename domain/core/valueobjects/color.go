package valueobjects

// ColorToken is an opaque color reference resolved by the rendering
// collaborator. The empty token means "unset"; edges with an unset
// color inherit their source node's token at creation time.
type ColorToken string

// NoColor is the unset color token
const NoColor ColorToken = ""

// String returns the string representation
func (c ColorToken) String() string {
	return string(c)
}

// IsSet reports whether the token carries a color
func (c ColorToken) IsSet() bool {
	return c != NoColor
}
