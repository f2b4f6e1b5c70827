package descriptors_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/descriptors"
	"github.com/google/go-cmp/cmp"
)

type villager struct {
	descriptors.Notifier
	Name    string
	Hearts  int
	Clicked descriptors.Event[string]
	mood    string
}

func (v *villager) Mood() string {
	return v.mood
}

func (v *villager) SetMood(mood string) error {
	if mood == "" {
		return errors.New("mood is required")
	}
	v.mood = mood
	v.NotifyPropertyChanged("Mood")
	return nil
}

func (v *villager) Greeting() string {
	return "Hi, " + v.Name
}

func (v *villager) Gift(item string, count int) (string, error) {
	if count <= 0 {
		return "", errors.New("nothing to give")
	}
	return strings.Repeat(item, count), nil
}

func describe(t *testing.T, target any) descriptors.ObjectDescriptor {
	t.Helper()
	descriptor, err := descriptors.NewReflectionFactory().GetObjectDescriptor(reflect.TypeOf(target))
	if err != nil {
		t.Fatalf("GetObjectDescriptor failed: %v", err)
	}
	return descriptor
}

func TestReflectionFactory(t *testing.T) {
	t.Run("should cache descriptors per type", func(t *testing.T) {
		factory := descriptors.NewReflectionFactory()
		first, _ := factory.GetObjectDescriptor(reflect.TypeFor[*villager]())
		second, _ := factory.GetObjectDescriptor(reflect.TypeFor[*villager]())
		if first != second {
			t.Errorf("expected the same descriptor instance")
		}
		if _, err := factory.GetObjectDescriptor(nil); err == nil {
			t.Errorf("expected an error for a nil type")
		}
	})

	t.Run("should report change notification support", func(t *testing.T) {
		if !describe(t, &villager{}).SupportsChangeNotifications() {
			t.Errorf("villager should support change notifications")
		}
		type plain struct{ Name string }
		if describe(t, &plain{}).SupportsChangeNotifications() {
			t.Errorf("plain struct should not support change notifications")
		}
	})

	t.Run("should read and write field properties ignoring case", func(t *testing.T) {
		v := &villager{Name: "Robin"}
		property, ok := describe(t, v).TryGetProperty("name")
		if !ok {
			t.Fatalf("property name not found")
		}
		if property.ValueType() != reflect.TypeFor[string]() || !property.CanWrite() {
			t.Errorf("unexpected property shape: %v writable=%v", property.ValueType(), property.CanWrite())
		}
		got, err := property.GetValue(v)
		if err != nil || got != "Robin" {
			t.Errorf("GetValue() = %v, %v", got, err)
		}
		if err := property.SetValue(v, "Emily"); err != nil {
			t.Fatalf("SetValue failed: %v", err)
		}
		if v.Name != "Emily" {
			t.Errorf("Name = %q, want Emily", v.Name)
		}
		if err := property.SetValue(v, 42); err == nil {
			t.Errorf("expected an error assigning an int to a string property")
		}
	})

	t.Run("should pair getter and setter methods", func(t *testing.T) {
		v := &villager{mood: "happy"}
		descriptor := describe(t, v)
		mood, ok := descriptor.TryGetProperty("Mood")
		if !ok || !mood.CanWrite() {
			t.Fatalf("expected a writable Mood property")
		}
		var changed []string
		remove := v.OnPropertyChanged(func(name string) { changed = append(changed, name) })
		if err := mood.SetValue(v, "grumpy"); err != nil {
			t.Fatalf("SetValue failed: %v", err)
		}
		if err := mood.SetValue(v, ""); err == nil {
			t.Errorf("expected the setter error to be returned")
		}
		remove()
		_ = mood.SetValue(v, "calm")
		if diff := cmp.Diff([]string{"Mood"}, changed); diff != "" {
			t.Errorf("notifications mismatch (-want +got):\n%s", diff)
		}
		greeting, ok := descriptor.TryGetProperty("greeting")
		if !ok || greeting.CanWrite() {
			t.Fatalf("expected a read-only greeting property")
		}
	})

	t.Run("should invoke methods", func(t *testing.T) {
		v := &villager{}
		gift, ok := describe(t, v).TryGetMethod("gift")
		if !ok {
			t.Fatalf("method gift not found")
		}
		if args := gift.ArgumentTypes(); len(args) != 2 || args[0] != reflect.TypeFor[string]() || args[1] != reflect.TypeFor[int]() {
			t.Errorf("ArgumentTypes() = %v", args)
		}
		got, err := gift.Invoke(v, []any{"gem", 2})
		if err != nil || got != "gemgem" {
			t.Errorf("Invoke() = %v, %v", got, err)
		}
		if _, err := gift.Invoke(v, []any{"gem", 0}); err == nil {
			t.Errorf("expected the method error to be returned")
		}
		if _, err := gift.Invoke(v, []any{"gem"}); err == nil {
			t.Errorf("expected an argument count error")
		}
	})

	t.Run("should subscribe to events", func(t *testing.T) {
		v := &villager{}
		event, ok := describe(t, v).TryGetEvent("clicked")
		if !ok {
			t.Fatalf("event clicked not found")
		}
		if event.ArgumentType() != reflect.TypeFor[string]() {
			t.Errorf("ArgumentType() = %v", event.ArgumentType())
		}
		var received []any
		remove, err := event.Subscribe(v, func(arg any) { received = append(received, arg) })
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		v.Clicked.Raise("left")
		remove()
		v.Clicked.Raise("right")
		if diff := cmp.Diff([]any{"left"}, received); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
		if v.Clicked.HandlerCount() != 0 {
			t.Errorf("expected no handlers after removal")
		}
	})

	t.Run("should not treat events or embedded notifiers as properties", func(t *testing.T) {
		descriptor := describe(t, &villager{})
		for _, name := range []string{"Clicked", "Notifier"} {
			if _, ok := descriptor.TryGetProperty(name); ok {
				t.Errorf("unexpected property %s", name)
			}
		}
	})
}
