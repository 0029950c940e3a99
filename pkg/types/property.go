package types

// Method identifies the acquisition path that produced a record.
type Method string

const (
	MethodAPI  Method = "json-api"
	MethodHTML Method = "html"
	// MethodBrowser renders through headless Chrome; the wire value stays
	// "playwright" because downstream dataset consumers key on it.
	MethodBrowser Method = "playwright"
)

// ListingSummary is the partial record a search surface yields for one
// listing. Every field is optional; numerics are nil when the source did
// not carry them.
type ListingSummary struct {
	PropertyID   string
	ListingID    string
	MLSNumber    string
	URL          string
	Street       string
	City         string
	State        string
	Zip          string
	Price        string // raw, "450000" or "$450,000"
	PropertyType string
	Status       string
	Beds         *float64
	Baths        *float64
	Sqft         *float64
	Latitude     *float64
	Longitude    *float64
	LotSize      *float64
	YearBuilt    *int
	HOA          *float64
}

// DetailRecord is what a single listing page yields. It covers the summary
// field space plus the fields only detail pages carry.
type DetailRecord struct {
	ListingSummary
	Description string
	ListingDate string
}

// PropertyRecord is the canonical output row. JSON keys are a stable wire
// contract; nullable fields marshal as JSON null when absent.
type PropertyRecord struct {
	PropertyID    string   `json:"propertyId"`
	URL           string   `json:"url"`
	Address       string   `json:"address"`
	StreetAddress string   `json:"streetAddress"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	Zip           string   `json:"zip"`
	Price         *string  `json:"price"`
	Beds          *float64 `json:"beds"`
	Baths         *float64 `json:"baths"`
	Sqft          *float64 `json:"sqft"`
	PropertyType  string   `json:"propertyType"`
	Status        string   `json:"status"`
	ListingDate   string   `json:"listingDate"`
	Description   string   `json:"description"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	MLSNumber     string   `json:"mlsNumber"`
	LotSize       *float64 `json:"lotSize"`
	YearBuilt     *int     `json:"yearBuilt"`
	HOA           *float64 `json:"hoa"`
	Source        Method   `json:"source"`
	FetchedAt     string   `json:"fetched_at"`
}

// Identity returns the dedupe key for a summary: the property id when one
// survived extraction, otherwise the listing URL.
func (s ListingSummary) Identity() string {
	if s.PropertyID != "" {
		return s.PropertyID
	}
	return s.URL
}

// Fill returns s with empty fields taken from fallback. Populated fields
// always win; nil numerics count as empty.
func (s ListingSummary) Fill(fallback ListingSummary) ListingSummary {
	if s.PropertyID == "" {
		s.PropertyID = fallback.PropertyID
	}
	if s.ListingID == "" {
		s.ListingID = fallback.ListingID
	}
	if s.MLSNumber == "" {
		s.MLSNumber = fallback.MLSNumber
	}
	if s.URL == "" {
		s.URL = fallback.URL
	}
	if s.Street == "" {
		s.Street = fallback.Street
	}
	if s.City == "" {
		s.City = fallback.City
	}
	if s.State == "" {
		s.State = fallback.State
	}
	if s.Zip == "" {
		s.Zip = fallback.Zip
	}
	if s.Price == "" {
		s.Price = fallback.Price
	}
	if s.PropertyType == "" {
		s.PropertyType = fallback.PropertyType
	}
	if s.Status == "" {
		s.Status = fallback.Status
	}
	if s.Beds == nil {
		s.Beds = fallback.Beds
	}
	if s.Baths == nil {
		s.Baths = fallback.Baths
	}
	if s.Sqft == nil {
		s.Sqft = fallback.Sqft
	}
	if s.Latitude == nil {
		s.Latitude = fallback.Latitude
	}
	if s.Longitude == nil {
		s.Longitude = fallback.Longitude
	}
	if s.LotSize == nil {
		s.LotSize = fallback.LotSize
	}
	if s.YearBuilt == nil {
		s.YearBuilt = fallback.YearBuilt
	}
	if s.HOA == nil {
		s.HOA = fallback.HOA
	}
	return s
}

// Fill merges fallback into d field-wise, keeping d's populated fields.
func (d DetailRecord) Fill(fallback DetailRecord) DetailRecord {
	d.ListingSummary = d.ListingSummary.Fill(fallback.ListingSummary)
	if d.Description == "" {
		d.Description = fallback.Description
	}
	if d.ListingDate == "" {
		d.ListingDate = fallback.ListingDate
	}
	return d
}

// IsEmpty reports whether the record carries any data at all.
func (d DetailRecord) IsEmpty() bool {
	s := d.ListingSummary
	return s.PropertyID == "" && s.ListingID == "" && s.MLSNumber == "" && s.URL == "" &&
		s.Street == "" && s.City == "" && s.State == "" && s.Zip == "" &&
		s.Price == "" && s.PropertyType == "" && s.Status == "" &&
		s.Beds == nil && s.Baths == nil && s.Sqft == nil &&
		s.Latitude == nil && s.Longitude == nil && s.LotSize == nil &&
		s.YearBuilt == nil && s.HOA == nil &&
		d.Description == "" && d.ListingDate == ""
}

// RunSummary is persisted to the key-value store when a run saves at least
// one record.
type RunSummary struct {
	PropertiesSaved int      `json:"propertiesSaved"`
	RuntimeSeconds  float64  `json:"runtimeSeconds"`
	MethodsUsed     []Method `json:"methodsUsed"`
}
