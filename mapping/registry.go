package mapping

import (
	"fmt"
	"strings"
	"sync"

	stderrors "github.com/aleksip/RecordManager/errors"
)

// EnricherConstructor builds an Enricher from its resolved config map,
// using config.GetString/GetInt/GetBool-style accessors on the caller's
// side (§4.M).
type EnricherConstructor func(cfg map[string]any) (Enricher, error)

const defaultNamespace = "builtin"

// enricherRegistry is the §4.M "analogous EnrichmentRegistry": a
// name -> constructor map, same registration-map shape as record.registry,
// reground here since enrichers are a distinct concern from metadata-record
// formats.
var enricherRegistry = struct {
	mu           sync.RWMutex
	constructors map[string]EnricherConstructor
}{constructors: make(map[string]EnricherConstructor)}

// RegisterEnricher associates name with its constructor under the default
// namespace, unless name already contains a "/" (already qualified).
func RegisterEnricher(name string, ctor EnricherConstructor) error {
	if name == "" {
		return stderrors.WrapFatal(stderrors.ErrInvalidConfig, "mapping", "RegisterEnricher", "name validation")
	}
	if ctor == nil {
		return stderrors.WrapFatal(stderrors.ErrInvalidConfig, "mapping", "RegisterEnricher", "constructor validation")
	}

	qualified := qualify(name)

	enricherRegistry.mu.Lock()
	defer enricherRegistry.mu.Unlock()

	if _, exists := enricherRegistry.constructors[qualified]; exists {
		return stderrors.WrapFatal(fmt.Errorf("enricher %q already registered", qualified),
			"mapping", "RegisterEnricher", "duplicate enricher check")
	}
	enricherRegistry.constructors[qualified] = ctor
	return nil
}

func qualify(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return defaultNamespace + "/" + name
}

// newEnricher looks up and instantiates an enricher by its configured name.
func newEnricher(name string, cfg map[string]any) (Enricher, error) {
	qualified := qualify(name)

	enricherRegistry.mu.RLock()
	ctor, exists := enricherRegistry.constructors[qualified]
	enricherRegistry.mu.RUnlock()

	if !exists {
		return nil, stderrors.WrapFatal(
			fmt.Errorf("%w: enricher %q", stderrors.ErrConfigNotFound, qualified),
			"mapping", "newEnricher", "enricher lookup")
	}
	return ctor(cfg)
}

func resetEnricherRegistry() {
	enricherRegistry.mu.Lock()
	defer enricherRegistry.mu.Unlock()
	enricherRegistry.constructors = make(map[string]EnricherConstructor)
}
