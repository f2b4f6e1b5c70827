package sources

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/descriptors"
)

// ContextPropertySource reads and writes a named property of a context's data.
//
// When the data announces property changes, the source is marked dirty whenever the bound
// property changes and Update rereads it; otherwise the value is read once. Sources created
// without updates never reread after construction.
type ContextPropertySource struct {
	data         any
	property     descriptors.PropertyDescriptor
	allowUpdates bool
	value        any
	dirty        bool
	isWriting    bool
	remove       func()
	err          error
}

// NewContextPropertySource binds the property name of context's data. The context must
// already be redirected.
func NewContextPropertySource(context *BindingContext, name string, allowUpdates bool) (*ContextPropertySource, error) {
	if context == nil || context.Data == nil {
		return nil, fmt.Errorf("cannot bind %s without a context", name)
	}
	property, ok := context.Descriptor.TryGetProperty(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %T", ErrPropertyNotFound, name, context.Data)
	}
	s := &ContextPropertySource{
		data:         context.Data,
		property:     property,
		allowUpdates: allowUpdates,
	}
	s.read()
	if notifier, ok := context.Data.(descriptors.PropertyChangeNotifier); ok && allowUpdates {
		s.remove = notifier.OnPropertyChanged(s.onPropertyChanged)
	}
	return s, nil
}

func (s *ContextPropertySource) CanRead() bool           { return s.property.CanRead() }
func (s *ContextPropertySource) CanWrite() bool          { return s.property.CanWrite() }
func (s *ContextPropertySource) ValueType() reflect.Type { return s.property.ValueType() }
func (s *ContextPropertySource) Value() any              { return s.value }

// Err returns the error of the most recent failed read
func (s *ContextPropertySource) Err() error {
	return s.err
}

func (s *ContextPropertySource) DisplayName() string {
	return fmt.Sprintf("%T.%s", s.data, s.property.Name())
}

// SetValue writes the property. Writing a property that cannot be written does nothing.
func (s *ContextPropertySource) SetValue(value any) error {
	if !s.property.CanWrite() {
		return nil
	}
	s.isWriting = true
	defer func() { s.isWriting = false }()
	if err := s.property.SetValue(s.data, value); err != nil {
		return fmt.Errorf("%s: %w", s.DisplayName(), err)
	}
	s.value = value
	return nil
}

// Update rereads the property if it changed since the last update.
func (s *ContextPropertySource) Update() bool {
	if !s.dirty {
		return false
	}
	s.dirty = false
	s.read()
	return true
}

// Close stops listening for changes
func (s *ContextPropertySource) Close() error {
	if s.remove != nil {
		s.remove()
		s.remove = nil
	}
	return nil
}

func (s *ContextPropertySource) read() {
	if !s.property.CanRead() {
		return
	}
	value, err := s.property.GetValue(s.data)
	if err != nil {
		s.err = err
		return
	}
	s.value, s.err = value, nil
}

func (s *ContextPropertySource) onPropertyChanged(name string) {
	if s.isWriting || !strings.EqualFold(name, s.property.Name()) {
		return
	}
	s.dirty = true
}
