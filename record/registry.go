package record

import (
	"fmt"
	"sync"

	stderrors "github.com/aleksip/RecordManager/errors"
)

// registry is the package-level format -> constructor map from §4.M,
// populated at init time by blank-import side effects in record-parser
// packages. Grounded on component.Registry's mutex-guarded factory map,
// reduced to the one operation this package actually needs: register and
// look up by format string.
var registry = struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}{constructors: make(map[string]Constructor)}

// Register associates a metadata format tag with its constructor. Called
// from record-parser packages' init(), e.g.:
//
//	func init() { record.Register("MarcXML", NewMarcRecord) }
//
// Registering the same format twice is a programmer error.
func Register(format string, ctor Constructor) error {
	if format == "" {
		return stderrors.WrapFatal(stderrors.ErrInvalidConfig, "record", "Register", "format name validation")
	}
	if ctor == nil {
		return stderrors.WrapFatal(stderrors.ErrInvalidConfig, "record", "Register", "constructor validation")
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.constructors[format]; exists {
		return stderrors.WrapFatal(fmt.Errorf("format %q already registered", format),
			"record", "Register", "duplicate format check")
	}
	registry.constructors[format] = ctor
	return nil
}

// NewMetadataRecord looks up format's constructor and builds a
// MetadataRecord from raw. An unknown format is a fatal/programmer error
// (§7): it means a data source is configured with a format no parser
// package registered, which should have been caught at startup.
func NewMetadataRecord(format string, raw []byte) (MetadataRecord, error) {
	registry.mu.RLock()
	ctor, exists := registry.constructors[format]
	registry.mu.RUnlock()

	if !exists {
		return nil, stderrors.WrapFatal(
			fmt.Errorf("%w: %q", stderrors.ErrUnknownFormat, format),
			"record", "NewMetadataRecord", "format lookup")
	}
	return ctor(raw)
}

// RegisteredFormats returns every format currently registered, for
// diagnostics and startup validation of data-source settings.
func RegisteredFormats() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	out := make([]string, 0, len(registry.constructors))
	for f := range registry.constructors {
		out = append(out, f)
	}
	return out
}

// reset clears the registry; used only by tests to avoid cross-test
// duplicate-registration failures.
func reset() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.constructors = make(map[string]Constructor)
}
