// Package idgen issues time-ordered 64-bit identifiers for every stored record.
// IDs from one node are strictly increasing, so (created_at, id) ordering
// and "id < cursor" keyset pagination agree.
package idgen

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.RWMutex
	node *snowflake.Node
)

// Init configures the process-wide generator. nodeID must be in [0, 1023].
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// Next returns a new identifier, initializing node 0 lazily when Init was never called.
func Next() int64 {
	mu.RLock()
	n := node
	mu.RUnlock()
	if n == nil {
		mu.Lock()
		if node == nil {
			node, _ = snowflake.NewNode(0)
		}
		n = node
		mu.Unlock()
	}
	return n.Generate().Int64()
}

// Parse decodes a decimal identifier as sent by clients.
func Parse(s string) (int64, error) {
	id, err := snowflake.ParseString(s)
	if err != nil {
		return 0, err
	}
	if id.Int64() <= 0 {
		return 0, fmt.Errorf("identifier must be positive: %q", s)
	}
	return id.Int64(), nil
}

// Format encodes an identifier for the wire.
func Format(id int64) string {
	return strconv.FormatInt(id, 10)
}
