package sources

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]SourceFactory)
	mu       sync.RWMutex
)

// Register adds a source factory to the registry under "type.name".
func Register(name string, factory SourceFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Create creates a new source instance by type and name
func Create(sourceType, name string, config map[string]interface{}) (NormalizedSampleSource, error) {
	mu.RLock()
	key := fmt.Sprintf("%s.%s", sourceType, name)
	factory, ok := registry[key]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, key)
	}

	return factory(config)
}

// List returns all registered source names, sorted
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
