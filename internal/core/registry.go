package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if an entity with the same key is already registered or if its
// table layout is invalid.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Key))
	}
	if def.Table.Name == "" {
		def.Table.Name = def.Key
	}
	if err := def.Table.Validate(); err != nil {
		panic(fmt.Sprintf("entity %s: %v", def.Key, err))
	}
	if def.Build == nil {
		panic(fmt.Sprintf("entity %s: no build function", def.Key))
	}

	registry[def.Key] = def
}

// Get returns an entity definition by key.
// Returns false if not found.
func Get(key string) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered definitions sorted by key.
func All() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Ordered returns all definitions in dependency order: every entity comes
// after the entities it declares as parents. Entities that become ready at
// the same time are ordered by key. Unknown parents and cycles are errors.
func Ordered() ([]EntityDefinition, error) {
	defs := All()

	byKey := make(map[string]EntityDefinition, len(defs))
	for _, def := range defs {
		byKey[def.Key] = def
	}

	indegree := make(map[string]int, len(defs))
	children := make(map[string][]string, len(defs))
	for _, def := range defs {
		seen := map[string]bool{}
		for _, p := range def.Parents {
			if _, ok := byKey[p.Entity]; !ok {
				return nil, fmt.Errorf("entity %s: unknown parent %s", def.Key, p.Entity)
			}
			if p.Entity == def.Key {
				return nil, fmt.Errorf("entity %s: parent of itself", def.Key)
			}
			if seen[p.Entity] {
				continue
			}
			seen[p.Entity] = true
			indegree[def.Key]++
			children[p.Entity] = append(children[p.Entity], def.Key)
		}
	}

	var ready []string
	for _, def := range defs {
		if indegree[def.Key] == 0 {
			ready = append(ready, def.Key)
		}
	}

	ordered := make([]EntityDefinition, 0, len(defs))
	for len(ready) > 0 {
		sort.Strings(ready)
		key := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byKey[key])

		for _, child := range children[key] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(ordered) != len(defs) {
		var stuck []string
		for _, def := range defs {
			if indegree[def.Key] > 0 {
				stuck = append(stuck, def.Key)
			}
		}
		return nil, fmt.Errorf("dependency cycle among entities: %v", stuck)
	}
	return ordered, nil
}

// EntityCount returns the number of registered entities.
func EntityCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered entities.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]EntityDefinition)
}
