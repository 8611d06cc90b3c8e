package shared

// Filter represents query filter options. Domain repositories embed it in
// their own filter structs.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}
