// Package fakesdk stands in for a third-party client library that mints its
// own identifiers. Tests list it in ignore prefixes.
package fakesdk

import (
	"github.com/google/uuid"

	"uuidfreeze/pkg/uuidfreeze"
)

// RequestID returns a fresh request identifier.
func RequestID() string {
	return uuidfreeze.NewString()
}

// Client mints an identifier per operation.
type Client struct{}

// Send returns the identifier attached to one operation.
func (c *Client) Send() (uuid.UUID, error) {
	return uuidfreeze.NewRandom()
}
