package record

import (
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func cardFrom(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse card: %v", err)
	}
	return doc.Find("body").Children().First()
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "heading widget beats plain heading",
			html: `<div><h2 class="elementor-heading-title">Fancy Lamp</h2><h3>Ignored</h3></div>`,
			want: "fancy lamp",
		},
		{
			name: "plain h3",
			html: `<div><h3>Desk Chair</h3></div>`,
			want: "desk chair",
		},
		{
			name: "woocommerce title class",
			html: `<div><span class="woocommerce-loop-product__title">Mug</span></div>`,
			want: "mug",
		},
		{
			name: "data attribute fallback",
			html: `<div data-title="Hidden Gem"></div>`,
			want: "hidden gem",
		},
		{
			name: "no title at all",
			html: `<div><p>just text</p></div>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Extract("1", cardFrom(t, tt.html))
			if rec.Title != tt.want {
				t.Errorf("Title = %q, want %q", rec.Title, tt.want)
			}
		})
	}
}

func TestExtractPricePrecedence(t *testing.T) {
	tests := []struct {
		name string
		html string
		want float64
	}{
		{
			name: "explicit price wins",
			html: `<div data-price="150" data-sale-price="100" data-regular-price="200"></div>`,
			want: 150,
		},
		{
			name: "sale beats regular when price missing",
			html: `<div data-sale-price="100" data-regular-price="200"></div>`,
			want: 100,
		},
		{
			name: "regular when no sale",
			html: `<div data-regular-price="200"></div>`,
			want: 200,
		},
		{
			name: "min variant price last",
			html: `<div data-min-price="50"></div>`,
			want: 50,
		},
		{
			name: "non-numeric defaults to zero",
			html: `<div data-price="free"></div>`,
			want: 0,
		},
		{
			name: "negative defaults to zero",
			html: `<div data-price="-10"></div>`,
			want: 0,
		},
		{
			name: "nothing at all",
			html: `<div></div>`,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Extract("1", cardFrom(t, tt.html))
			if rec.Price != tt.want {
				t.Errorf("Price = %v, want %v", rec.Price, tt.want)
			}
		})
	}
}

func TestExtractListsAndAttributes(t *testing.T) {
	html := `<div data-product-id="9" data-title="Shirt" data-price="10"
		data-categories=" 10, 20 ,,30 " data-tags="5"
		data-pa-color="Red, Blue" data-pa-size="M"
		data-badge-label="New,Hot"></div>`

	rec := Extract("9", cardFrom(t, html))

	if want := []string{"10", "20", "30"}; !reflect.DeepEqual(rec.Categories, want) {
		t.Errorf("Categories = %v, want %v", rec.Categories, want)
	}
	if want := []string{"5"}; !reflect.DeepEqual(rec.Tags, want) {
		t.Errorf("Tags = %v, want %v", rec.Tags, want)
	}

	// Taxonomy attributes get their full names back and lowercased
	// value slugs; reserved base fields never leak into the bag.
	if want := []string{"red", "blue"}; !reflect.DeepEqual(rec.Attributes["pa_color"], want) {
		t.Errorf("pa_color = %v, want %v", rec.Attributes["pa_color"], want)
	}
	if want := []string{"m"}; !reflect.DeepEqual(rec.Attributes["pa_size"], want) {
		t.Errorf("pa_size = %v, want %v", rec.Attributes["pa_size"], want)
	}
	if want := []string{"new", "hot"}; !reflect.DeepEqual(rec.Attributes["badgeLabel"], want) {
		t.Errorf("badgeLabel = %v, want %v", rec.Attributes["badgeLabel"], want)
	}
	for _, reserved := range []string{"productId", "title", "price", "categories", "tags"} {
		if _, ok := rec.Attributes[reserved]; ok {
			t.Errorf("reserved key %q leaked into attribute bag", reserved)
		}
	}
}

func TestDatasetKeyConversions(t *testing.T) {
	tests := []struct {
		attr     string
		dataset  string
		taxonomy string
	}{
		{"pa-color", "paColor", "pa_color"},
		{"pa_color", "paColor", "pa_color"},
		{"pa-shoe-size", "paShoeSize", "pa_shoe_size"},
		{"badge-label", "badgeLabel", "badgeLabel"},
		{"pattern", "pattern", "pattern"},
	}

	for _, tt := range tests {
		if got := DatasetKey(tt.attr); got != tt.dataset {
			t.Errorf("DatasetKey(%q) = %q, want %q", tt.attr, got, tt.dataset)
		}
		if got := TaxonomyName(tt.dataset); got != tt.taxonomy {
			t.Errorf("TaxonomyName(%q) = %q, want %q", tt.dataset, got, tt.taxonomy)
		}
	}
}

func TestDataAttrName(t *testing.T) {
	if got := DataAttrName("pa_color"); got != "data-pa-color" {
		t.Errorf("DataAttrName = %q, want data-pa-color", got)
	}
}

func TestFillFrom(t *testing.T) {
	rec := New("5")
	rec.Title = "scraped"

	ds := New("5")
	ds.Title = "dataset"
	ds.Price = 42
	ds.Categories = []string{"1"}
	ds.Attributes["pa_color"] = []string{"red"}

	rec.FillFrom(ds)

	if rec.Title != "scraped" {
		t.Errorf("scraped title was overridden: %q", rec.Title)
	}
	if rec.Price != 42 {
		t.Errorf("Price = %v, want 42", rec.Price)
	}
	if len(rec.Categories) != 1 || len(rec.Attributes["pa_color"]) != 1 {
		t.Error("dataset fields were not filled in")
	}
}
