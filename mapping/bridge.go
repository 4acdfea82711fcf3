package mapping

import (
	"sync"

	"github.com/aleksip/RecordManager/record"
)

// Bridge lazily instantiates and caches enrichers per (source, name) and
// applies them to a document in the order §4.E specifies: global enrichers
// before per-source ones, config order within each group, duplicates
// removed before invocation.
type Bridge struct {
	configs map[string]map[string]any // enricher name -> its config map
	global  []string                  // global enrichment names, in config order

	mu    sync.Mutex
	cache map[string]Enricher // "source\x00name" -> instance
}

// NewBridge builds a Bridge. global is the default-namespace enrichment
// list applied to every source; configs supplies each enricher's own
// configuration map (read via the config package's GetString/GetInt/...
// accessors by the enricher's own constructor).
func NewBridge(global []string, configs map[string]map[string]any) *Bridge {
	return &Bridge{
		configs: configs,
		global:  global,
		cache:   make(map[string]Enricher),
	}
}

// Apply runs source's enrichment list (global enrichers first, then
// per-source ones, duplicates removed) against doc.
func (b *Bridge) Apply(source string, perSource []string, metadataRecord record.MetadataRecord, doc map[string][]string) error {
	for _, name := range orderedUnique(b.global, perSource) {
		enricher, err := b.get(source, name)
		if err != nil {
			return err
		}
		if err := enricher.Enrich(source, metadataRecord, doc); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) get(source, name string) (Enricher, error) {
	key := source + "\x00" + name

	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.cache[key]; ok {
		return e, nil
	}

	e, err := newEnricher(name, b.configs[name])
	if err != nil {
		return nil, err
	}
	b.cache[key] = e
	return e, nil
}

// orderedUnique concatenates global then perSource, dropping later
// duplicates while keeping first-seen order, per §4.E: "global enrichers
// precede per-source ones; duplicates are removed before invocation."
func orderedUnique(global, perSource []string) []string {
	seen := make(map[string]bool, len(global)+len(perSource))
	out := make([]string, 0, len(global)+len(perSource))
	for _, name := range append(append([]string{}, global...), perSource...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
