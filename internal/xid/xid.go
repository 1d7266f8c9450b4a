package xid

import "github.com/google/uuid"

// New returns a random identifier such as "prd-9b2c...". An empty prefix
// yields the bare UUID.
func New(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
