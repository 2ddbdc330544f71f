package wechat

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// extractText pulls the article body text out of a WeChat article page.
// WeChat renders content inside #js_content; article and main are fallbacks
// for republished pages on other hosts.
func extractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find("script, style").Remove()

	node := doc.Find("#js_content").First()
	if node.Length() == 0 {
		node = doc.Find("article").First()
	}
	if node.Length() == 0 {
		node = doc.Find("main").First()
	}

	var text string
	if node.Length() > 0 {
		text = nodeText(node)
	} else {
		text = nodeText(doc.Selection.Find("body"))
	}

	return strings.TrimSpace(blankRuns.ReplaceAllString(text, "\n\n")), nil
}

// nodeText joins block-level text with newlines, trimming each line.
func nodeText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, line := range strings.Split(sel.Text(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		b.WriteString(trimmed)
		b.WriteString("\n")
	}
	return b.String()
}
