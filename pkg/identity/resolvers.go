package identity

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlaceholderID is the template sentinel that leaks into markup when the
// builder renders its loop skeleton. Never a real identity.
const PlaceholderID = "{{ post.id }}"

var classPatterns = []*regexp.Regexp{
	regexp.MustCompile(`product-id-(\d+)`),
	regexp.MustCompile(`e-loop-item-(\d+)`),
	regexp.MustCompile(`\bpost-(\d+)`),
	regexp.MustCompile(`elementor-post-(\d+)`),
}

// MarkerResolver reads the explicit identity marker attribute. Both the
// dashed and underscored spellings occur in the wild.
type MarkerResolver struct{}

func (m *MarkerResolver) Name() string  { return "marker" }
func (m *MarkerResolver) Priority() int { return 100 }

func (m *MarkerResolver) Resolve(sel *goquery.Selection) (string, bool) {
	for _, attr := range []string{"data-product-id", "data-product_id"} {
		if val, exists := sel.Attr(attr); exists {
			val = strings.TrimSpace(val)
			if val != "" && val != PlaceholderID {
				return val, true
			}
		}
	}
	return "", false
}

// ClassResolver matches the numeric-id class conventions used by the
// successive loop templates (product-id-N, e-loop-item-N, post-N,
// elementor-post-N). All stay supported because grids mix generations.
type ClassResolver struct{}

func (c *ClassResolver) Name() string  { return "class" }
func (c *ClassResolver) Priority() int { return 90 }

func (c *ClassResolver) Resolve(sel *goquery.Selection) (string, bool) {
	classes, _ := sel.Attr("class")
	if classes == "" {
		return "", false
	}
	for _, pattern := range classPatterns {
		if match := pattern.FindStringSubmatch(classes); match != nil {
			return match[1], true
		}
	}
	return "", false
}

// NestedMarkerResolver finds an identity marker on a descendant, most
// commonly the add-to-cart control embedded in the card.
type NestedMarkerResolver struct{}

func (n *NestedMarkerResolver) Name() string  { return "nested" }
func (n *NestedMarkerResolver) Priority() int { return 80 }

func (n *NestedMarkerResolver) Resolve(sel *goquery.Selection) (string, bool) {
	nested := sel.Find("[data-product_id], [data-product-id]").First()
	if nested.Length() == 0 {
		return "", false
	}
	for _, attr := range []string{"data-product_id", "data-product-id"} {
		if val, exists := nested.Attr(attr); exists {
			val = strings.TrimSpace(val)
			if val != "" && val != PlaceholderID {
				return val, true
			}
		}
	}
	return "", false
}

var productPathRegex = regexp.MustCompile(`/product/([^/?#]+)`)

// SlugResolver extracts the slug segment of a product permalink and
// scans known titles for one that slugifies to it. O(n) per card, but it
// only fires on malformed markup that lost its data markers. First match
// wins; duplicate titles are not disambiguated.
type SlugResolver struct {
	Titles TitleSource
}

func (s *SlugResolver) Name() string  { return "slug" }
func (s *SlugResolver) Priority() int { return 70 }

func (s *SlugResolver) Resolve(sel *goquery.Selection) (string, bool) {
	if s.Titles == nil {
		return "", false
	}
	link := sel.Find(`a[href*="/product/"]`).First()
	if link.Length() == 0 {
		return "", false
	}
	href, _ := link.Attr("href")
	match := productPathRegex.FindStringSubmatch(href)
	if match == nil {
		return "", false
	}
	slug := match[1]

	var id string
	s.Titles.EachTitle(func(identity, title string) bool {
		if Slugify(title) == slug {
			id = identity
			return false
		}
		return true
	})
	return id, id != ""
}

// Slugify lowercases a title and collapses whitespace runs into single
// hyphens, mirroring how the permalinks are generated.
func Slugify(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}
