package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText normalizes the rendered text of a node: whitespace runs collapse
// to a single space, remaining non-printable runes are dropped and the
// result is trimmed. Whitespace must collapse first, otherwise a lone
// newline between words would be dropped instead of becoming a space.
func CleanText(node *html.Node) string {
	text := whitespaceRun.ReplaceAllString(GetText(node), " ")
	text = removeNonPrintable(text)
	return strings.Trim(text, " ")
}
