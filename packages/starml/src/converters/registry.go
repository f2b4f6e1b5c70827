package converters

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

type typePair struct {
	source      reflect.Type
	destination reflect.Type
}

func (p typePair) String() string {
	return fmt.Sprintf("%s -> %s", p.source, p.destination)
}

type cacheEntry struct {
	converter Converter
	ok        bool
}

// Registry resolves converters between arbitrary types. Explicit converters are tried first,
// followed by user factories and then the built-in conversion rules. Every resolved pair,
// including failures, is cached until something new is registered.
type Registry struct {
	mu sync.Mutex

	logger       *util.OnceLogger
	exact        map[typePair]Converter
	factories    []Factory
	enums        map[reflect.Type]*enumInfo
	constructors map[reflect.Type][]*constructor
	cache        map[typePair]cacheEntry
	inFlight     []typePair
	poisoned     map[typePair]bool
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger used for conversion warnings
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = util.NewOnceLogger(logger)
	}
}

// WithoutPrimitives skips registration of the string-to-primitive converters
func WithoutPrimitives() Option {
	return func(r *Registry) {
		r.exact = map[typePair]Converter{}
	}
}

// NewRegistry creates a new Registry with the string-to-primitive converters registered.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:       util.NewOnceLogger(nil),
		exact:        map[typePair]Converter{},
		enums:        map[reflect.Type]*enumInfo{},
		constructors: map[reflect.Type][]*constructor{},
		cache:        map[typePair]cacheEntry{},
		poisoned:     map[typePair]bool{},
	}
	registerPrimitives(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an explicit converter, replacing any previous converter for the same pair.
func (r *Registry) Register(converter Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[typePair{converter.SourceType(), converter.DestinationType()}] = converter
	r.resetLocked()
}

// RegisterFactory adds a converter factory. Factories are consulted in registration order,
// after explicit converters and before the built-in rules.
func (r *Registry) RegisterFactory(factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = append(r.factories, factory)
	r.resetLocked()
}

// RegisterFunc registers a typed conversion function from S to D
func RegisterFunc[S, D any](r *Registry, fn func(S) (D, error)) {
	r.Register(NewFunc(fn))
}

// TryGet returns the converter from source to destination, or false if none can be resolved.
func (r *Registry) TryGet(source, destination reflect.Type) (Converter, bool) {
	if source == nil || destination == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(source, destination)
}

// Get is TryGet returning an error wrapping ErrUnsupportedConversion on failure.
func (r *Registry) Get(source, destination reflect.Type) (Converter, error) {
	if converter, ok := r.TryGet(source, destination); ok {
		return converter, nil
	}
	return nil, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, source, destination)
}

// TryGetConverter returns the typed converter from S to D. Repeated calls for the same pair
// return equal values.
func TryGetConverter[S, D any](r *Registry) (Typed[S, D], bool) {
	converter, ok := r.TryGet(reflect.TypeFor[S](), reflect.TypeFor[D]())
	if !ok {
		return Typed[S, D]{}, false
	}
	return Typed[S, D]{inner: converter}, true
}

// Convert converts value to D using the converter for its dynamic type.
func Convert[D any](r *Registry, value any) (D, error) {
	var zero D
	if value == nil {
		return zero, nil
	}
	converter, err := r.Get(reflect.TypeOf(value), reflect.TypeFor[D]())
	if err != nil {
		return zero, err
	}
	result, err := converter.Convert(value)
	if err != nil || result == nil {
		return zero, err
	}
	return result.(D), nil
}

func (r *Registry) resetLocked() {
	r.cache = map[typePair]cacheEntry{}
}

// lockedLookup resolves from within a resolution that already holds the registry lock.
type lockedLookup struct {
	r *Registry
}

func (l lockedLookup) TryGet(source, destination reflect.Type) (Converter, bool) {
	return l.r.resolve(source, destination)
}

func (r *Registry) resolve(source, destination reflect.Type) (Converter, bool) {
	key := typePair{source, destination}
	if entry, ok := r.cache[key]; ok {
		return entry.converter, entry.ok
	}
	for i, pending := range r.inFlight {
		if pending == key {
			r.logger.Warn(key.String(), "Conversion refers to itself and is disabled",
				"source", source.String(), "destination", destination.String())
			// Every pair from the repeated one upward depends on the cycle.
			for _, cyclic := range r.inFlight[i:] {
				r.poisoned[cyclic] = true
			}
			return nil, false
		}
	}
	r.inFlight = append(r.inFlight, key)
	converter, ok := r.create(key)
	r.inFlight = r.inFlight[:len(r.inFlight)-1]
	if r.poisoned[key] {
		delete(r.poisoned, key)
		converter, ok = nil, false
	}
	r.cache[key] = cacheEntry{converter, ok}
	return converter, ok
}

type ruleFunc func(r *Registry, key typePair) (Converter, bool)

// rules lists the resolution order. It is built per call because the rules resolve member
// conversions recursively through create.
func rules() []ruleFunc {
	return []ruleFunc{
		(*Registry).exactOrBase,
		(*Registry).userFactories,
		(*Registry).enumName,
		identityRule,
		anyCastRule,
		assignableRule,
		(*Registry).nullable,
		toStringRule,
		(*Registry).enumDuck,
		(*Registry).structDuck,
	}
}

func (r *Registry) create(key typePair) (Converter, bool) {
	for _, rule := range rules() {
		if converter, ok := rule(r, key); ok {
			return converter, true
		}
	}
	return nil, false
}

func (r *Registry) userFactories(key typePair) (Converter, bool) {
	for _, factory := range r.factories {
		if converter, ok := factory.TryCreate(lockedLookup{r}, key.source, key.destination); ok {
			return converter, true
		}
	}
	return nil, false
}
