package design

import "github.com/google/uuid"

// NewDesignID returns a new globally-unique design identifier.
func NewDesignID() string {
	return uuid.New().String()
}

// NewProposalID returns a new opaque 12-character token, unique within a
// design's proposal set with overwhelming probability (§3: "opaque 12-char
// token unique within a design").
func NewProposalID() string {
	return uuid.New().String()[:12]
}
