package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"apartment-tracker/models"
)

// Selectors for the floorplan table markup. Each scraped fragment is one
// <tr class="unit-container"> row.
const (
	nameSelector    = "td.td-card-name"
	priceSelector   = "td.td-card-rent"
	footerSelector  = "td.td-card-footer a"
	detailsSelector = "td.td-card-details ul li"
)

// ExtractError reports a malformed fragment. It is fragment-local: the
// reconciler skips the fragment and keeps going.
type ExtractError struct {
	Field  string
	Reason string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Field, e.Reason)
}

// ExtractListing turns one raw markup fragment into a Listing. It is a pure
// transformation; timestamps are left zero for the store to assign.
//
// The first details entry is the floor plan and the second (when present)
// the unit style. That positional convention mirrors the source markup
// ordering and is kept as documented behaviour.
func ExtractListing(fragment string) (*models.Listing, error) {
	// Row fragments need a table context or the parser drops the cells.
	doc, err := goquery.NewDocumentFromReader(
		strings.NewReader("<table><tbody>" + fragment + "</tbody></table>"))
	if err != nil {
		return nil, &ExtractError{Field: "fragment", Reason: err.Error()}
	}

	names := textNodes(doc.Find(nameSelector))
	if len(names) == 0 {
		return nil, &ExtractError{Field: "name", Reason: "no text under " + nameSelector}
	}
	name := names[len(names)-1]

	prices := textNodes(doc.Find(priceSelector))
	if len(prices) == 0 {
		return nil, &ExtractError{Field: "price", Reason: "no text under " + priceSelector}
	}
	price, err := parsePrice(prices[0])
	if err != nil {
		return nil, &ExtractError{Field: "price", Reason: err.Error()}
	}

	pageURL := strings.TrimSpace(doc.Find(footerSelector).First().AttrOr("href", ""))
	if pageURL == "" {
		return nil, &ExtractError{Field: "page_url", Reason: "no link under " + footerSelector}
	}

	var details []string
	doc.Find(detailsSelector).Each(func(_ int, li *goquery.Selection) {
		for _, txt := range textNodes(li) {
			if d := strings.TrimSpace(strings.TrimLeft(txt, "- ")); d != "" {
				details = append(details, d)
			}
		}
	})
	if len(details) == 0 {
		return nil, &ExtractError{Field: "floor", Reason: "no entries under " + detailsSelector}
	}

	floor := details[0]
	details = details[1:]
	var style *string
	if len(details) > 0 {
		style = &details[0]
		details = details[1:]
	}

	return &models.Listing{
		Name:    name,
		Floor:   floor,
		Style:   style,
		PageURL: pageURL,
		Price:   price,
		Details: details,
	}, nil
}

// textNodes collects the trimmed, non-empty direct text nodes of each
// matched element, in document order. Child elements are not descended
// into, matching an XPath text() step.
func textNodes(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			node := c.Get(0)
			if node.Type != html.TextNode {
				return
			}
			if txt := strings.TrimSpace(node.Data); txt != "" {
				out = append(out, txt)
			}
		})
	})
	return out
}

// parsePrice strips the currency symbol and thousands separators from a
// rent string like "$1,372" and parses the remainder as a whole number.
func parsePrice(raw string) (int, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	price, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return price, nil
}
