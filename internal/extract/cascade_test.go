package extract

import "testing"

// A search page carrying both an embedded state blob and rendered cards.
// The state blob is authoritative when present.
const mixedSearchPage = `<html><head><script>
window.__INITIAL_STATE__ = {"homes":[{"propertyId":"111","streetLine":{"value":"1 State St"},"price":500000}]};
</script></head><body>
<div class="bp-Homecard">
  <a href="/IL/Chicago/1-Dom-St/home/222"></a>
  <span class="bp-Homecard__Price--value">$999,999</span>
</div>
</body></html>`

func TestListingsPrefersEmbeddedState(t *testing.T) {
	got := Listings([]byte(mixedSearchPage))
	if len(got) != 1 {
		t.Fatalf("got %d listings, want 1", len(got))
	}
	if got[0].PropertyID != "111" || got[0].Street != "1 State St" {
		t.Errorf("listing = %+v, want the embedded state home", got[0])
	}
}

func TestListingsFallsBackToDOM(t *testing.T) {
	page := `<div class="bp-Homecard">
<a href="/IL/Chicago/1-Dom-St/home/222"></a>
<span class="bp-Homecard__Price--value">$999,999</span>
</div>`
	got := Listings([]byte(page))
	if len(got) != 1 {
		t.Fatalf("got %d listings, want 1", len(got))
	}
	if got[0].PropertyID != "222" || got[0].Price != "$999,999" {
		t.Errorf("listing = %+v, want the card home", got[0])
	}
}

func TestListingsEmptyPage(t *testing.T) {
	if got := Listings([]byte(`<html><body><p>Nothing here.</p></body></html>`)); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

// A listing page where each strategy sees a different slice of the data.
// Linked data has price and street, the state blob has the id and remarks,
// and only the rendered markup carries a bath count.
const mixedDetailPage = `<html><head>
<script type="application/ld+json">
{"@type":"House","offers":{"price":700000},"address":{"streetAddress":"1 Ld St"}}
</script>
<script>
window.__INITIAL_STATE__ = {"homeDetails":{"propertyId":"42","price":650000,"marketingRemarks":"From the state blob."}};
</script>
</head><body>
<div data-rf-test-id="abp-baths"><div class="statsValue">2</div></div>
<div class="remarks">From the markup.</div>
</body></html>`

func TestDetailMergesStrategies(t *testing.T) {
	d := Detail([]byte(mixedDetailPage))

	if d.Price != "700000" {
		t.Errorf("Price = %q, want the linked data price over the state price", d.Price)
	}
	if d.Street != "1 Ld St" {
		t.Errorf("Street = %q", d.Street)
	}
	if d.PropertyID != "42" {
		t.Errorf("PropertyID = %q, want it filled from the state blob", d.PropertyID)
	}
	if d.Description != "From the state blob." {
		t.Errorf("Description = %q, want the state remarks over the markup", d.Description)
	}
	if d.Baths == nil || *d.Baths != 2 {
		t.Errorf("Baths = %v, want the markup stat to fill the gap", d.Baths)
	}
}

func TestDetailEmptyPage(t *testing.T) {
	if d := Detail([]byte(`<html><body></body></html>`)); !d.IsEmpty() {
		t.Errorf("record = %+v, want empty", d)
	}
}
