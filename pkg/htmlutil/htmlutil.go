package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText returns the text of every descendant text node of `node` concatenated together.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, "")
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer, sep string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		if sep != "" && buffer.Len() > 0 {
			buffer.WriteString(sep)
		}
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer, sep)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		switch {
		case unicode.IsSpace(c):
			newStr.WriteRune(' ')
		case unicode.IsPrint(c):
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Clean removes non-printable characters, collapses runs of whitespace into a single space
// and trims the result.
func Clean(text string) string {
	text = removeNonPrintable(text)
	text = innerWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// OwnText returns the cleaned text of the direct text children of the first node in `sel`,
// text nested in child elements is ignored.
func OwnText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var buffer bytes.Buffer
	for child := sel.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			buffer.WriteString(child.Data)
		}
	}
	return Clean(buffer.String())
}

// JoinedText returns the cleaned text of all descendant text nodes of the first node in `sel`,
// separated by spaces so adjacent elements do not run into each other.
func JoinedText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var buffer bytes.Buffer
	getTextRecursive(sel.Nodes[0], &buffer, " ")
	return Clean(buffer.String())
}

// TextAfter returns the first non-blank text node that follows the first child element of `sel`
// matching `tag` (ex. the text right after a <br>), cleaned.
func TextAfter(sel *goquery.Selection, tag string) string {
	if sel.Length() == 0 {
		return ""
	}
	child := sel.Nodes[0].FirstChild
	for child != nil {
		if child.Type == html.ElementNode && child.Data == tag {
			break
		}
		child = child.NextSibling
	}
	if child == nil {
		return ""
	}
	for sib := child.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.TextNode {
			continue
		}
		if text := Clean(sib.Data); text != "" {
			return text
		}
	}
	return ""
}
