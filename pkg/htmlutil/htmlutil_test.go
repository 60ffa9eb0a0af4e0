package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestOwnText(t *testing.T) {
	doc := parse(t, `<div id="x">  Mein <b>ignored</b>
		Tarif:&nbsp;</div>`)
	require.Equal(t, "Mein Tarif:", OwnText(doc.Find("#x")))
	require.Equal(t, "", OwnText(doc.Find("#missing")))
}

func TestJoinedText(t *testing.T) {
	doc := parse(t, `<li id="x"><span>Gültig von:</span><span>01.02.2024 10:00</span></li>`)
	require.Equal(t, "Gültig von: 01.02.2024 10:00", JoinedText(doc.Find("#x")))
}

func TestTextAfter(t *testing.T) {
	doc := parse(t, `<a id="x"><span class="bold">Max</span><br>
		<i></i> 0681 123 456 </a><a id="y"><span>no break</span></a>`)
	require.Equal(t, "0681 123 456", TextAfter(doc.Find("#x"), "br"))
	require.Equal(t, "", TextAfter(doc.Find("#y"), "br"))
}

func TestGetText(t *testing.T) {
	doc := parse(t, `<p id="x">a<b>b</b>c</p>`)
	require.Equal(t, "abc", GetText(doc.Find("#x").Nodes[0]))
}
