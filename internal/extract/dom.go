package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// Selector tables cover the markup generations the site has shipped. Within
// a table the first selector that matches wins.
var (
	cardSelectors = []string{
		"div.bp-Homecard",
		"div.HomeCardContainer",
		"[data-rf-test-name='mapHomeCard']",
	}
	cardPriceSelectors = []string{
		".bp-Homecard__Price--value",
		".homecardV2Price",
		"[data-rf-test-name='homecard-price']",
	}
	cardAddressSelectors = []string{
		".bp-Homecard__Address",
		".homeAddressV2",
		"[data-rf-test-name='searchResult-address']",
	}
	cardBedsSelectors = []string{
		".bp-Homecard__Stats--beds",
		"[data-rf-test-id='abp-beds']",
		".stats-beds",
	}
	cardBathsSelectors = []string{
		".bp-Homecard__Stats--baths",
		"[data-rf-test-id='abp-baths']",
		".stats-baths",
	}
	cardSqftSelectors = []string{
		".bp-Homecard__Stats--sqft",
		"[data-rf-test-id='abp-sqFt']",
		".stats-sqft",
	}

	detailPriceSelectors = []string{
		"[data-rf-test-id='abp-price'] .statsValue",
		".stat-block.price-section .statsValue",
		"div.price",
	}
	detailBedsSelectors = []string{
		"[data-rf-test-id='abp-beds'] .statsValue",
		".stat-block.beds-section .statsValue",
	}
	detailBathsSelectors = []string{
		"[data-rf-test-id='abp-baths'] .statsValue",
		".stat-block.baths-section .statsValue",
	}
	detailSqftSelectors = []string{
		"[data-rf-test-id='abp-sqFt'] .statsValue",
		".stat-block.sqft-section .statsValue",
	}
	detailAddressSelectors = []string{
		"[data-rf-test-id='abp-homeinfo-homeaddress']",
		".street-address",
		"h1 .full-address",
	}
	detailDescriptionSelectors = []string{
		"#marketing-remarks-scroll",
		"[data-rf-test-id='listingRemarks']",
		".remarks",
	}
)

var homeIDPattern = regexp.MustCompile(`/home/(\d+)`)

// ListingsFromDOM extracts card-level summaries from search page markup.
func ListingsFromDOM(body []byte) []types.ListingSummary {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	cards := firstSelection(doc.Selection, cardSelectors)
	if cards == nil {
		return nil
	}
	var out []types.ListingSummary
	cards.Each(func(_ int, card *goquery.Selection) {
		if s := summaryFromCard(card); !summaryEmpty(s) {
			out = append(out, s)
		}
	})
	return out
}

func summaryFromCard(card *goquery.Selection) types.ListingSummary {
	var s types.ListingSummary

	if href, ok := cardLink(card); ok {
		s.URL = href
		s.PropertyID = PropertyIDFromURL(href)
	}
	s.Price = firstText(card, cardPriceSelectors)
	s.Street, s.City, s.State, s.Zip = SplitAddress(firstText(card, cardAddressSelectors))
	s.Beds = Number(firstText(card, cardBedsSelectors))
	s.Baths = Number(firstText(card, cardBathsSelectors))
	s.Sqft = Number(firstText(card, cardSqftSelectors))
	return s
}

func cardLink(card *goquery.Selection) (string, bool) {
	if href, ok := card.Find("a[href*='/home/']").First().Attr("href"); ok && href != "" {
		return href, true
	}
	if href, ok := card.Find("a").First().Attr("href"); ok && href != "" {
		return href, true
	}
	return "", false
}

// DetailFromDOM extracts field-level data from listing page markup.
func DetailFromDOM(body []byte) types.DetailRecord {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.DetailRecord{}
	}
	var d types.DetailRecord
	d.Price = firstText(doc.Selection, detailPriceSelectors)
	d.Beds = Number(firstText(doc.Selection, detailBedsSelectors))
	d.Baths = Number(firstText(doc.Selection, detailBathsSelectors))
	d.Sqft = Number(firstText(doc.Selection, detailSqftSelectors))
	d.Street, d.City, d.State, d.Zip = SplitAddress(firstText(doc.Selection, detailAddressSelectors))
	d.Description = firstText(doc.Selection, detailDescriptionSelectors)
	return d
}

// PropertyIDFromURL pulls the numeric id out of a /home/<id> listing path.
func PropertyIDFromURL(rawurl string) string {
	if m := homeIDPattern.FindStringSubmatch(rawurl); m != nil {
		return m[1]
	}
	return ""
}

// firstSelection returns the first selector's non-empty match set.
func firstSelection(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// firstText returns the collapsed text of the first selector that matches.
func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if found := root.Find(sel); found.Length() > 0 {
			if t := Text(found.First().Text()); t != "" {
				return t
			}
		}
	}
	return ""
}

// SplitAddress breaks a display address like "123 Main St, Chicago, IL
// 60657" into parts. Missing segments come back empty.
func SplitAddress(full string) (street, city, state, zip string) {
	full = Text(full)
	if full == "" {
		return "", "", "", ""
	}
	parts := strings.Split(full, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 1:
		street = parts[0]
	case 2:
		street, city = parts[0], parts[1]
	default:
		street = strings.Join(parts[:len(parts)-2], ", ")
		city = parts[len(parts)-2]
	}
	if len(parts) >= 3 {
		state, zip = splitStateZip(parts[len(parts)-1])
	}
	return street, city, state, zip
}

var zipPattern = regexp.MustCompile(`\b(\d{5}(?:-\d{4})?)\b`)

func splitStateZip(raw string) (state, zip string) {
	raw = Text(raw)
	if m := zipPattern.FindString(raw); m != "" {
		zip = m
		raw = Text(strings.Replace(raw, m, "", 1))
	}
	return raw, zip
}
