package page

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/spigell/job-copilot/internal/utils"
)

// noiseSelectors never contribute to visible text.
const noiseSelectors = "script, style, noscript, template"

// HTMLExtractor implements Extractor on top of goquery.
type HTMLExtractor struct{}

func NewExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Detect runs the job page heuristic and extracts the context on a match.
func (HTMLExtractor) Detect(pageURL, html string) (*JobContext, bool, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, false, err
	}

	if !LooksLikeJobPage(bodyText(doc)) {
		return nil, false, nil
	}

	return extract(pageURL, doc), true, nil
}

// BodyText returns the whitespace-collapsed visible text of the page body.
func BodyText(html string) (string, error) {
	doc, err := parse(html)
	if err != nil {
		return "", err
	}

	return bodyText(doc), nil
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(noiseSelectors).Remove()
	return doc, nil
}

func extract(pageURL string, doc *goquery.Document) *JobContext {
	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = utils.CollapseWhitespace(doc.Find("title").First().Text())
	}

	company, _ := doc.Find(`meta[property="og:site_name"]`).First().Attr("content")
	company = strings.TrimSpace(company)
	if company == "" {
		company = unknownCompany
	}

	return &JobContext{
		URL:            pageURL,
		JobTitle:       title,
		Company:        company,
		JobDescription: utils.TruncateRunes(bodyText(doc), MaxDescriptionLength),
	}
}

// bodyText joins text nodes with spaces, so adjacent block elements do not
// glue their words together the way Selection.Text does.
func bodyText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range doc.Find("body").Nodes {
		walk(n)
	}

	return utils.CollapseWhitespace(b.String())
}
