package catalog

// Item is one catalog entry. Items come from the catalog resource and are
// never modified or persisted locally.
type Item struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Image      string  `json:"image"`
	LargeImage string  `json:"large_image"`
	Price      float64 `json:"price"`
	URL        string  `json:"url"`
}

// DefaultPath is where the catalog resource is served from.
const DefaultPath = "/data/items.json"
