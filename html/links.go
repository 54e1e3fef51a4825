package html

import (
	"fmt"
	"strings"

	css "github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DefaultLinkSelector matches every anchor with an href.
const DefaultLinkSelector = "a[href]"

// ExtractLinks returns the href of each element in body matching selector, in
// document order. An empty selector means DefaultLinkSelector. Duplicate
// links are kept since emails often repeat a call to action.
//
// There is no support for grouped (i.e., comma-separated) selectors.
func ExtractLinks(body string, selector string) ([]string, error) {
	if selector == "" {
		selector = DefaultLinkSelector
	}
	if strings.Contains(selector, ",") {
		return nil, fmt.Errorf("grouped selectors are not supported: %q", selector)
	}

	sel, err := css.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("can't parse the link selector: %v", err)
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("can't parse the email body as HTML: %v", err)
	}

	links := []string{}
	for _, n := range sel.MatchAll(doc) {
		for _, a := range n.Attr {
			if a.Key == "href" && strings.TrimSpace(a.Val) != "" {
				links = append(links, strings.TrimSpace(a.Val))
			}
		}
	}
	return links, nil
}

// FirstLinkContaining returns the first link in body whose href contains
// substr, e.g., "verify?token=". The bool is false if there is none.
func FirstLinkContaining(body string, substr string) (string, bool, error) {
	links, err := ExtractLinks(body, "")
	if err != nil {
		return "", false, err
	}
	for _, l := range links {
		if strings.Contains(l, substr) {
			return l, true, nil
		}
	}
	return "", false, nil
}
