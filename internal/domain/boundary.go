package domain

// Province, District and Ward mirror the three-tier administrative hierarchy
// served by the open boundary API. Codes are the API's numeric identifiers.
type Province struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type District struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type Ward struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}
