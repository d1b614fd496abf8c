// Package compression stores database values compressed. Values are framed
// so a store can mix compressed and raw values.
package compression

import (
	"fmt"
	"sort"
	"sync"
)

// Compressor defines the interface for compression algorithms.
type Compressor interface {
	// Name returns the name of the compression algorithm.
	Name() string

	// Tag identifies the algorithm in a stored frame. Tag 0 is reserved
	// for raw values.
	Tag() byte

	// Compress returns the compressed form of data, or ok false when data
	// does not shrink.
	Compress(data []byte) (out []byte, ok bool, err error)

	// Decompress expands data into exactly size bytes.
	Decompress(data []byte, size int) ([]byte, error)
}

// Factory is a function that creates a new compressor instance.
type Factory func() Compressor

var (
	mu          sync.RWMutex
	compressors = make(map[string]Factory)
	tags        = make(map[byte]Factory)
)

// Register registers a compressor factory under its name and tag.
func Register(factory Factory) {
	c := factory()

	mu.Lock()
	defer mu.Unlock()
	compressors[c.Name()] = factory
	tags[c.Tag()] = factory
}

// Get returns a new compressor instance for the given name.
func Get(name string) (Compressor, error) {
	mu.RLock()
	factory, ok := compressors[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown compressor: %s", name)
	}
	return factory(), nil
}

func byTag(tag byte) (Compressor, bool) {
	mu.RLock()
	factory, ok := tags[tag]
	mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Available returns the registered compressor names in sorted order.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(compressors))
	for name := range compressors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsAvailable checks if a compressor with the given name is available.
func IsAvailable(name string) bool {
	mu.RLock()
	_, ok := compressors[name]
	mu.RUnlock()
	return ok
}

func init() {
	Register(func() Compressor { return NoCompressor{} })
	Register(func() Compressor { return LZ4Compressor{} })
}
