package formats

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/logger"
)

// Registry manages format registration and lookup by name
type Registry struct {
	readers map[string]Reader
	writers map[string]Writer
	mu      sync.RWMutex
	logger  *zap.Logger
}

// Global registry instance; format packages register themselves in init
var globalRegistry = NewRegistry()

// NewRegistry creates a new format registry
func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[string]Reader),
		writers: make(map[string]Writer),
		logger:  logger.Get().With(zap.String("component", "format_registry")),
	}
}

// RegisterReader registers a format reader under a name
func (r *Registry) RegisterReader(name string, reader Reader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.readers[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "format reader %s already registered", name)
	}
	r.readers[name] = reader
	r.logger.Debug("format reader registered", zap.String("name", name))
	return nil
}

// RegisterWriter registers a format writer under a name
func (r *Registry) RegisterWriter(name string, writer Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.writers[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "format writer %s already registered", name)
	}
	r.writers[name] = writer
	r.logger.Debug("format writer registered", zap.String("name", name))
	return nil
}

// Reader looks up a registered format reader by name
func (r *Registry) Reader(name string) (Reader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reader, exists := r.readers[name]
	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown input format %q", name)
	}
	return reader, nil
}

// Writer looks up a registered format writer by name
func (r *Registry) Writer(name string) (Writer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	writer, exists := r.writers[name]
	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown output format %q", name)
	}
	return writer, nil
}

// Names returns the sorted names of all registered readers
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.readers))
	for name := range r.readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterReader registers a reader in the global registry
func RegisterReader(name string, reader Reader) error {
	return globalRegistry.RegisterReader(name, reader)
}

// RegisterWriter registers a writer in the global registry
func RegisterWriter(name string, writer Writer) error {
	return globalRegistry.RegisterWriter(name, writer)
}

// LookupReader finds a reader in the global registry
func LookupReader(name string) (Reader, error) {
	return globalRegistry.Reader(name)
}

// LookupWriter finds a writer in the global registry
func LookupWriter(name string) (Writer, error) {
	return globalRegistry.Writer(name)
}

// Names lists the reader formats registered globally
func Names() []string {
	return globalRegistry.Names()
}
