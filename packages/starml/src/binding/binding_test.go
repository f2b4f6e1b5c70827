package binding_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/assets"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/backoff"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/binding"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/converters"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/descriptors"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/sources"
	"github.com/google/go-cmp/cmp"
)

type ClickArgs struct {
	Button string
	Count  int
}

type Label struct {
	Text  string
	Scale float32
	Click descriptors.Event[ClickArgs]
}

type TextInput struct {
	Text string
}

type Lane struct {
	Children []any
}

type testViews struct {
	created int
}

func (v *testViews) CreateView(tag string) (any, error) {
	v.created++
	switch strings.ToLower(tag) {
	case "label":
		return &Label{}, nil
	case "textinput":
		return &TextInput{}, nil
	case "lane":
		return &Lane{}, nil
	}
	return nil, fmt.Errorf("unknown view <%s>", tag)
}

func (v *testViews) SetChildren(view any, children []any) error {
	lane, ok := view.(*Lane)
	if !ok {
		return fmt.Errorf("%T does not accept children", view)
	}
	lane.Children = children
	return nil
}

type Model struct {
	descriptors.Notifier
	Name      string
	IsVisible bool
	Query     string
	Friend    *Model
	Greetings []string
}

func (m *Model) SetName(name string) {
	m.Name = name
	m.NotifyPropertyChanged("Name")
}

func (m *Model) SetIsVisible(visible bool) {
	m.IsVisible = visible
	m.NotifyPropertyChanged("IsVisible")
}

func (m *Model) SetFriend(friend *Model) {
	m.Friend = friend
	m.NotifyPropertyChanged("Friend")
}

func (m *Model) Greet(who string, count int) {
	m.Greetings = append(m.Greetings, fmt.Sprintf("%s x%d", who, count))
}

type fixture struct {
	views       *testViews
	descriptors *descriptors.ReflectionFactory
	binder      *binding.NodeBinder
	log         *bytes.Buffer
}

func newFixture() *fixture {
	views := &testViews{}
	descriptorFactory := descriptors.NewReflectionFactory()
	log := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(log, nil))
	sourceFactory := sources.NewFactory(converters.NewRegistry(converters.WithLogger(logger)), nil)
	return &fixture{
		views:       views,
		descriptors: descriptorFactory,
		binder:      binding.NewNodeBinder(views, descriptorFactory, sourceFactory, logger),
		log:         log,
	}
}

func (f *fixture) bind(t *testing.T, markup string, data any) *binding.BoundNode {
	t.Helper()
	doc, err := dom.ParseDocument(markup)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	context, err := sources.CreateContext(data, f.descriptors, nil)
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	bound, err := f.binder.Bind(doc.Root, context, nil)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	return bound
}

func update(t *testing.T, node *binding.BoundNode) bool {
	t.Helper()
	changed, err := node.Update()
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	return changed
}

func TestDirectionOf(t *testing.T) {
	cases := map[grammar.AttributeValueType]binding.Direction{
		grammar.AttributeValueTypeLiteral:            binding.DirectionIn,
		grammar.AttributeValueTypeInputBinding:       binding.DirectionIn,
		grammar.AttributeValueTypeOneTimeBinding:     binding.DirectionOneTime,
		grammar.AttributeValueTypeOutputBinding:      binding.DirectionOut,
		grammar.AttributeValueTypeTwoWayBinding:      binding.DirectionInOut,
		grammar.AttributeValueTypeTranslationBinding: binding.DirectionIn,
	}
	for valueType, expected := range cases {
		if got := binding.DirectionOf(valueType); got != expected {
			t.Errorf("DirectionOf(%v) = %v, want %v", valueType, got, expected)
		}
	}
}

func TestNodeBinder(t *testing.T) {
	t.Run("should follow changes to the bound name", func(t *testing.T) {
		f := newFixture()
		model := &Model{Name: "Robin"}
		bound := f.bind(t, `<label text="{Name}" scale="1.5" />`, model)
		label := bound.View().(*Label)
		if label.Text != "Robin" || label.Scale != 1.5 {
			t.Fatalf("label = %+v", label)
		}
		if update(t, bound) {
			t.Errorf("Update() should be false before any change")
		}
		model.SetName("Emily")
		if !update(t, bound) {
			t.Errorf("Update() should be true after the name changed")
		}
		if label.Text != "Emily" {
			t.Errorf("Text = %q, want Emily", label.Text)
		}
	})

	t.Run("should bind one-time values once", func(t *testing.T) {
		f := newFixture()
		model := &Model{Name: "Robin"}
		bound := f.bind(t, `<label text="{<:Name}" />`, model)
		model.SetName("Emily")
		update(t, bound)
		if text := bound.View().(*Label).Text; text != "Robin" {
			t.Errorf("Text = %q, want Robin", text)
		}
	})

	t.Run("should write two-way values back to the context", func(t *testing.T) {
		f := newFixture()
		model := &Model{Query: "seeds"}
		bound := f.bind(t, `<textinput text="{<>Query}" />`, model)
		input := bound.View().(*TextInput)
		if input.Text != "seeds" {
			t.Fatalf("Text = %q, want seeds", input.Text)
		}
		input.Text = "sap"
		if !update(t, bound) || model.Query != "sap" {
			t.Errorf("Query = %q, want sap", model.Query)
		}
	})

	t.Run("should suppress nodes with a false condition", func(t *testing.T) {
		f := newFixture()
		bound := f.bind(t, `<lane><label *if="false" /><label text="shown" /></lane>`, &Model{})
		lane := bound.View().(*Lane)
		if len(lane.Children) != 1 || lane.Children[0].(*Label).Text != "shown" {
			t.Errorf("children = %+v", lane.Children)
		}
		if bound.Children()[0].View() != nil {
			t.Errorf("hidden node should have no view")
		}
	})

	t.Run("should show and hide nodes as conditions change", func(t *testing.T) {
		f := newFixture()
		model := &Model{}
		bound := f.bind(t, `<lane><label *if="{IsVisible}" text="a" /><label *!if="{IsVisible}" text="b" /></lane>`, model)
		lane := bound.View().(*Lane)
		texts := func() []string {
			var result []string
			for _, child := range lane.Children {
				result = append(result, child.(*Label).Text)
			}
			return result
		}
		if diff := cmp.Diff([]string{"b"}, texts()); diff != "" {
			t.Errorf("initial children mismatch (-want +got):\n%s", diff)
		}
		model.SetIsVisible(true)
		if !update(t, bound) {
			t.Errorf("Update() should report the change")
		}
		if diff := cmp.Diff([]string{"a"}, texts()); diff != "" {
			t.Errorf("children mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should push context for descendants", func(t *testing.T) {
		f := newFixture()
		model := &Model{Name: "Farm", Friend: &Model{Name: "Robin"}}
		bound := f.bind(t, `<lane *context="{Friend}"><label text="{Name}" /><label text="{^Name}" /></lane>`, model)
		lane := bound.View().(*Lane)
		if lane.Children[0].(*Label).Text != "Robin" || lane.Children[1].(*Label).Text != "Farm" {
			t.Fatalf("children = %+v %+v", lane.Children[0], lane.Children[1])
		}
		model.SetFriend(&Model{Name: "Emily"})
		update(t, bound)
		lane = bound.View().(*Lane)
		if lane.Children[0].(*Label).Text != "Emily" {
			t.Errorf("Text = %q after the context changed", lane.Children[0].(*Label).Text)
		}
	})

	t.Run("should isolate failing attributes and children", func(t *testing.T) {
		f := newFixture()
		bound := f.bind(t, `<lane><label text="{Missing}" scale="big" /><unknown /><label text="{Name}" /></lane>`, &Model{Name: "Robin"})
		lane := bound.View().(*Lane)
		if len(lane.Children) != 2 || lane.Children[1].(*Label).Text != "Robin" {
			t.Errorf("children = %+v", lane.Children)
		}
		for _, msg := range []string{"Attribute binding failed", "Child node could not be bound"} {
			if !strings.Contains(f.log.String(), msg) {
				t.Errorf("log should contain %q:\n%s", msg, f.log.String())
			}
		}
	})

	t.Run("should fail nodes whose view cannot be created", func(t *testing.T) {
		f := newFixture()
		doc, _ := dom.ParseDocument(`<unknown />`)
		_, err := f.binder.Bind(doc.Root, nil, nil)
		var nodeErr *binding.NodeError
		if !errors.As(err, &nodeErr) || nodeErr.Tag != "unknown" {
			t.Errorf("expected a NodeError, got %v", err)
		}
	})

	t.Run("should call event handlers with arguments", func(t *testing.T) {
		f := newFixture()
		model := &Model{Name: "Robin"}
		bound := f.bind(t, `<label click=|Greet(Name, $Count)| />`, model)
		label := bound.View().(*Label)
		label.Click.Raise(ClickArgs{Button: "left", Count: 2})
		model.SetName("Emily")
		label.Click.Raise(ClickArgs{Button: "left", Count: 1})
		if diff := cmp.Diff([]string{"Robin x2", "Emily x1"}, model.Greetings); diff != "" {
			t.Errorf("greetings mismatch (-want +got):\n%s", diff)
		}
		if bound.Events()[0].Invocations() != 2 {
			t.Errorf("Invocations() = %d", bound.Events()[0].Invocations())
		}
		bound.Close()
		label.Click.Raise(ClickArgs{})
		if len(model.Greetings) != 2 {
			t.Errorf("closed binding should not call the handler")
		}
	})

	t.Run("should reject handlers with the wrong arity", func(t *testing.T) {
		f := newFixture()
		bound := f.bind(t, `<label click=|Greet("x")| />`, &Model{})
		if len(bound.Events()) != 0 || !strings.Contains(f.log.String(), "Event binding failed") {
			t.Errorf("expected the event binding to be dropped")
		}
	})
}

func TestDocumentView(t *testing.T) {
	documentType := reflect.TypeFor[*dom.Document]()
	parse := func(t *testing.T, markup string) *dom.Document {
		t.Helper()
		doc, err := dom.ParseDocument(markup)
		if err != nil {
			t.Fatalf("ParseDocument failed: %v", err)
		}
		return doc
	}

	t.Run("should bind and rebuild when the document changes", func(t *testing.T) {
		f := newFixture()
		cache := assets.NewMemoryCache()
		cache.Put("menu", parse(t, `<label text="{Name}" />`))
		model := &Model{Name: "Robin"}
		context, _ := sources.CreateContext(model, f.descriptors, nil)
		view := binding.NewDocumentView(f.binder, sources.NewAssetSource(cache, "menu", documentType), context, nil, backoff.DefaultRule)
		if !view.Tick(0) || view.View().(*Label).Text != "Robin" {
			t.Fatalf("first tick did not bind: %v", view.Err())
		}
		model.SetName("Emily")
		if !view.Tick(16*time.Millisecond) || view.View().(*Label).Text != "Emily" {
			t.Errorf("tick did not update the label")
		}
		cache.Put("menu", parse(t, `<lane><label text="{Name}" /></lane>`))
		view.Tick(16 * time.Millisecond)
		if _, ok := view.View().(*Lane); !ok {
			t.Errorf("view was not rebuilt: %T", view.View())
		}
	})

	t.Run("should expand templates before binding", func(t *testing.T) {
		f := newFixture()
		cache := assets.NewMemoryCache()
		cache.Put("menu", parse(t, `<card title="{Name}" /><template name="card"><lane><label text="{&title}" /></lane></template>`))
		context, _ := sources.CreateContext(&Model{Name: "Robin"}, f.descriptors, nil)
		view := binding.NewDocumentView(f.binder, sources.NewAssetSource(cache, "menu", documentType), context, nil, backoff.DefaultRule)
		view.Tick(0)
		lane, ok := view.View().(*Lane)
		if !ok || lane.Children[0].(*Label).Text != "Robin" {
			t.Errorf("expanded view = %+v (%v)", view.View(), view.Err())
		}
	})

	t.Run("should back off failing rebuilds", func(t *testing.T) {
		f := newFixture()
		cache := assets.NewMemoryCache()
		cache.Put("menu", parse(t, `<unknown />`))
		view := binding.NewDocumentView(f.binder, sources.NewAssetSource(cache, "menu", documentType), nil, nil, backoff.DefaultRule)
		if view.Tick(0) || view.Err() == nil {
			t.Fatalf("expected the first build to fail")
		}
		attempts := f.views.created
		view.Tick(20 * time.Millisecond)
		view.Tick(20 * time.Millisecond)
		if f.views.created != attempts {
			t.Errorf("rebuild retried before the backoff elapsed")
		}
		cache.Put("menu", parse(t, `<label text="fixed" />`))
		view.Tick(9 * time.Millisecond)
		if view.View() != nil {
			t.Errorf("rebuild should wait for the backoff")
		}
		if !view.Tick(time.Millisecond) || view.View().(*Label).Text != "fixed" {
			t.Errorf("rebuild after the backoff failed: %v", view.Err())
		}
	})

	t.Run("should report missing documents", func(t *testing.T) {
		f := newFixture()
		view := binding.NewDocumentView(f.binder, sources.NewAssetSource(assets.NewMemoryCache(), "menu", documentType), nil, nil, backoff.DefaultRule)
		view.Tick(0)
		if !errors.Is(view.Err(), binding.ErrNoDocument) {
			t.Errorf("expected ErrNoDocument, got %v", view.Err())
		}
		if err := view.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
}
