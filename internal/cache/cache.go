package cache

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Cache is a read-through store for serialized query results keyed by query signature
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Remove(key string)
	RemovePrefix(prefix string)
	Clear()
}

// WorkspacePrefix returns the key namespace of a workspace
func WorkspacePrefix(workspaceID int32) string {
	return fmt.Sprintf("ws:%d:", workspaceID)
}

// Key builds a cache key from a workspace, a query name and its parameters.
// Parameters keep their order so callers must pass them consistently.
func Key(workspaceID int32, query string, params ...string) string {
	var b strings.Builder
	b.WriteString(WorkspacePrefix(workspaceID))
	b.WriteString(query)
	for _, p := range params {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// GetJSON decodes a cached value into dst. Returns false on miss or on a corrupt entry.
func GetJSON(c Cache, key string, dst interface{}) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.Remove(key)
		return false
	}
	return true
}

// SetJSON encodes value and stores it under key
func SetJSON(c Cache, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.Set(key, data)
	return nil
}

// NoOpCache never stores anything
type NoOpCache struct{}

func (NoOpCache) Get(key string) ([]byte, bool) { return nil, false }
func (NoOpCache) Set(key string, value []byte)  {}
func (NoOpCache) Remove(key string)             {}
func (NoOpCache) RemovePrefix(prefix string)    {}
func (NoOpCache) Clear()                        {}
