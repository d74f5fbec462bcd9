package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nao1215/markcrawl/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, page *model.Page) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, page *model.Page) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, page)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	p := New()
	if p.StepCount() != 0 {
		t.Errorf("expected 0 steps, got %d", p.StepCount())
	}
	if p.logger == nil {
		t.Error("expected a default logger")
	}
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "step-1"}, &mockStep{name: "step-2"}, &mockStep{name: "step-3"})

		if p.StepCount() != 3 {
			t.Errorf("expected 3 steps, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddStep(&mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		want := []string{"first", "second", "third"}
		if got := p.StepNames(); !reflect.DeepEqual(got, want) {
			t.Errorf("StepNames() = %v, want %v", got, want)
		}
	})
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *model.Page) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddSteps(record("fetch"), record("convert"))

		if err := p.Execute(context.Background(), model.NewPage("https://example.com/", 0)); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !reflect.DeepEqual(order, []string{"fetch", "convert"}) {
			t.Errorf("order = %v", order)
		}
	})

	t.Run("steps share the page", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "a", doFunc: func(_ context.Context, page *model.Page) error {
			page.HTML = "<p>x</p>"
			return nil
		}})
		p.AddStep(&mockStep{name: "b", doFunc: func(_ context.Context, page *model.Page) error {
			page.Markdown = "from " + page.HTML
			return nil
		}})

		page := model.NewPage("https://example.com/", 0)
		if err := p.Execute(context.Background(), page); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if page.Markdown != "from <p>x</p>" {
			t.Errorf("Markdown = %q", page.Markdown)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(context.Context, *model.Page) error { return errBoom }}
		after := &mockStep{name: "after"}

		p := New()
		p.AddSteps(failing, after)

		err := p.Execute(context.Background(), model.NewPage("https://example.com/", 0))
		if !errors.Is(err, errBoom) {
			t.Errorf("expected errBoom, got %v", err)
		}
		if after.callCount != 0 {
			t.Errorf("step after failure ran %d times", after.callCount)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New()
		p.AddStep(step)

		if err := p.Execute(ctx, model.NewPage("https://example.com/", 0)); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step ran after cancellation")
		}
	})
}
