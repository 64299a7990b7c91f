package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingsDoc = `<?xml version="1.0" encoding="UTF-8"?>
<listings>
  <listing><id>P123</id><title>Beautiful Villa</title>
    <images><image>http://example.com/img1.jpg</image><image>http://example.com/img2.jpg</image></images>
  </listing>
  <property id="P124"><name>Apartment 5</name>
    <images><image url="http://example.com/img3.jpg" /></images>
  </property>
</listings>`

func TestLoadBuildsMapsListsAndAttributes(t *testing.T) {
	doc, err := Load([]byte(listingsDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"listings"}, doc.Keys())

	title, ok := Lookup(doc, "listings.listing.title")
	require.True(t, ok)
	assert.Equal(t, Scalar("Beautiful Villa"), title)

	images, ok := Lookup(doc, "listings.listing.images.image")
	require.True(t, ok)
	assert.Equal(t, List{Scalar("http://example.com/img1.jpg"), Scalar("http://example.com/img2.jpg")}, images)

	id, ok := Lookup(doc, "listings.property.@_id")
	require.True(t, ok)
	assert.Equal(t, Scalar("P124"), id)

	url, ok := Lookup(doc, "listings.property.images.image.@_url")
	require.True(t, ok)
	assert.Equal(t, Scalar("http://example.com/img3.jpg"), url)
}

func TestLoadKeepsPrefixedNamesAndText(t *testing.T) {
	data := `<rss xmlns:content="http://purl.org/rss/1.0/modules/content/"><channel>
<item><content:encoded><![CDATA[<p>3 bedrooms <img src="http://x.test/a.jpg"></p>]]></content:encoded>
<price currency="EUR">100000</price></item></channel></rss>`

	doc, err := Load([]byte(data))
	require.NoError(t, err)

	encoded, ok := Lookup(doc, "rss.channel.item.content:encoded")
	require.True(t, ok)
	assert.Contains(t, string(encoded.(Scalar)), `src="http://x.test/a.jpg"`)

	price, ok := Lookup(doc, "rss.channel.item.price")
	require.True(t, ok)
	assert.Equal(t, "100000", Text(price))

	ns, ok := Lookup(doc, "rss.@_xmlns:content")
	require.True(t, ok)
	assert.Equal(t, Scalar("http://purl.org/rss/1.0/modules/content/"), ns)
}

func TestLoadRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"mismatched": "<a><b></a>",
		"unclosed":   "<a><b></b>",
		"text only":  "just some text",
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(data))
			require.Error(t, err)
			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "expected ParseError, got %T", err)
		})
	}
}

func TestLoadPartialClosesOpenElements(t *testing.T) {
	doc, err := LoadPartial([]byte("<feed><item><id>1</id></item><item><id>2</id>"))
	require.NoError(t, err)

	ids, ok := Lookup(doc, "feed.item.id")
	require.True(t, ok)
	assert.Equal(t, List{Scalar("1"), Scalar("2")}, ids)
}

func TestLoadAcceptsHTMLEntities(t *testing.T) {
	doc, err := Load([]byte("<a><b>Sea&nbsp;view</b></a>"))
	require.NoError(t, err)

	b, ok := Lookup(doc, "a.b")
	require.True(t, ok)
	assert.Equal(t, "Sea\u00a0view", Text(b))
}

func TestDiscoverCollapsesRepetitions(t *testing.T) {
	doc, err := Load([]byte(listingsDoc))
	require.NoError(t, err)

	paths := Discover(doc)

	assert.Equal(t, []string{
		"listings.listing.id",
		"listings.listing.images.image",
		"listings.listing.title",
		"listings.property.@_id",
		"listings.property.images.image.@_url",
		"listings.property.name",
	}, paths)
}

func TestDiscoverIncludesListContainers(t *testing.T) {
	doc, err := Load([]byte(`<rss><channel><item><title>a</title></item><item><title>b</title><guid>2</guid></item></channel></rss>`))
	require.NoError(t, err)

	paths := Discover(doc)

	assert.Equal(t, []string{
		"rss.channel.item",
		"rss.channel.item.guid",
		"rss.channel.item.title",
	}, paths)
	assert.IsIncreasing(t, paths)
}

func TestLookupMissingPath(t *testing.T) {
	doc, err := Load([]byte(listingsDoc))
	require.NoError(t, err)

	_, ok := Lookup(doc, "listings.listing.price")
	assert.False(t, ok)

	_, ok = Lookup(doc, "listings.listing.title.deeper")
	assert.False(t, ok)
}

func TestFlattenIncludesAttributes(t *testing.T) {
	doc, err := Load([]byte(`<p id="7"><name>Flat</name><desc>2 bed, 85 sqm</desc></p>`))
	require.NoError(t, err)

	assert.Equal(t, `id="7" Flat 2 bed, 85 sqm`, Flatten(doc))
}

func TestJSONRoundTripKeepsOrder(t *testing.T) {
	doc, err := Load([]byte(`<r><z>1</z><a>2</a><m><k>x</k><k>y</k></m></r>`))
	require.NoError(t, err)

	data, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"r":{"z":"1","a":"2","m":{"k":["x","y"]}}}`, string(data))

	back, err := DecodeJSON(data)
	require.NoError(t, err)
	r, ok := Lookup(back, "r")
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, r.(*Map).Keys())
	assert.Equal(t, Flatten(doc), Flatten(back))
}

func TestCanonicalIgnoresKeyOrder(t *testing.T) {
	a := NewMap()
	a.Set("x", Scalar("1"))
	a.Set("y", Scalar("2"))

	b := NewMap()
	b.Set("y", Scalar("2"))
	b.Set("x", Scalar("1"))

	ca, err := Canonical(a)
	require.NoError(t, err)
	cb, err := Canonical(b)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}
