package grid

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/gridloop/gridfilter/pkg/identity"
	"github.com/gridloop/gridfilter/pkg/record"
)

func storeWithEntries(t *testing.T) *Store {
	t.Helper()
	store := NewStore()
	reg := identity.Default(store)
	Capture(containerFrom(t, captureFixture), reg, nil, store)
	return store
}

func renderedIdentities(t *testing.T, container *goquery.Selection, reg *identity.Registry) []string {
	t.Helper()
	var got []string
	container.Children().Each(func(i int, sel *goquery.Selection) {
		if id, ok := reg.Resolve(sel); ok {
			got = append(got, id)
		}
	})
	return got
}

func TestRenderRoundTrip(t *testing.T) {
	store := storeWithEntries(t)
	reg := identity.Default(store)
	container := containerFrom(t, `<div class="elementor-loop-container"></div>`)

	r := &Renderer{}
	n := r.Render(container, store, store.All())
	if n != 3 {
		t.Fatalf("rendered %d, want 3", n)
	}

	got := renderedIdentities(t, container, reg)
	want := []string{"100", "200", "300"}
	if len(got) != len(want) {
		t.Fatalf("rendered identities = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rendered identities = %v, want %v", got, want)
		}
	}

	// Rendering the same entries again leaves the same card count.
	r.Render(container, store, store.All())
	if container.Children().Length() != 3 {
		t.Errorf("second render left %d children, want 3", container.Children().Length())
	}
}

func TestRenderRestoresPresentation(t *testing.T) {
	store := storeWithEntries(t)
	container := containerFrom(t, `<div class="elementor-loop-container"></div>`)

	(&Renderer{}).Render(container, store, store.All())

	if class, _ := container.Attr("class"); class != "elementor-loop-container custom-grid" {
		t.Errorf("class = %q, want captured class list", class)
	}
	if style, _ := container.Attr("style"); style != "gap: 10px;" {
		t.Errorf("style = %q, want captured inline style", style)
	}
}

func TestRenderForcedLayout(t *testing.T) {
	store := storeWithEntries(t)
	container := containerFrom(t, `<div class="elementor-loop-container"></div>`)

	(&Renderer{ForceLayout: true}).Render(container, store, store.All())

	style, _ := container.Attr("style")
	if !strings.Contains(style, "display: grid") || !strings.Contains(style, "repeat(4, 1fr)") {
		t.Errorf("forced layout style not applied: %q", style)
	}
}

func TestRenderNoResultsPlaceholder(t *testing.T) {
	store := storeWithEntries(t)
	container := containerFrom(t, `<div class="elementor-loop-container"></div>`)

	n := (&Renderer{}).Render(container, store, nil)
	if n != 0 {
		t.Fatalf("rendered %d, want 0", n)
	}
	if container.Find(".no-results-message").Length() != 1 {
		t.Error("no-results placeholder missing")
	}

	// A later non-empty render replaces the placeholder.
	(&Renderer{}).Render(container, store, store.All())
	if container.Find(".no-results-message").Length() != 0 {
		t.Error("placeholder survived a non-empty render")
	}
}

func TestBuildPlanDuplicateGuard(t *testing.T) {
	store := NewStore()
	store.SetPresentation("c", "s")
	rec := record.New("9")
	store.Add("9", rec, `<div class="product-id-9"></div>`)

	e, _ := store.Get("9")
	plan := BuildPlan(store, []*Entry{e, e})

	if len(plan.Items) != 1 {
		t.Fatalf("plan has %d items, want 1", len(plan.Items))
	}
	if len(plan.Duplicates) != 1 || plan.Duplicates[0] != "9" {
		t.Errorf("Duplicates = %v, want [9]", plan.Duplicates)
	}
}
