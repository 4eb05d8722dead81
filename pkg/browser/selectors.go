package browser

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// FilterSelectors locate one search filter widget.
type FilterSelectors struct {
	Button     string `yaml:"button" json:"button"`
	Input      string `yaml:"input" json:"input"`
	Suggestion string `yaml:"suggestion" json:"suggestion"`
	Apply      string `yaml:"apply" json:"apply"`
}

// Selectors is the selector table of the people-search site. It is plain
// configuration handed to a Browser; nothing else interprets it.
type Selectors struct {
	LoginUsername string `yaml:"login_username" json:"login_username"`
	LoginPassword string `yaml:"login_password" json:"login_password"`
	LoginSubmit   string `yaml:"login_submit" json:"login_submit"`

	GlobalSearch string `yaml:"global_search" json:"global_search"`
	PeopleSearch string `yaml:"people_search" json:"people_search"`

	CityFilter    FilterSelectors `yaml:"city_filter" json:"city_filter"`
	CompanyFilter FilterSelectors `yaml:"company_filter" json:"company_filter"`

	ResultsList   string `yaml:"results_list" json:"results_list"`
	ResultItem    string `yaml:"result_item" json:"result_item"`
	Name          string `yaml:"name" json:"name"`
	Position      string `yaml:"position" json:"position"`
	ProfileLink   string `yaml:"profile_link" json:"profile_link"`
	PageButton    string `yaml:"page_button" json:"page_button"`
	PageBody      string `yaml:"page_body" json:"page_body"`
	BlockedMarker string `yaml:"blocked_marker" json:"blocked_marker"`
}

// DefaultSelectors returns the selector table for the people-search UI.
func DefaultSelectors() Selectors {
	return Selectors{
		LoginUsername: `input#username`,
		LoginPassword: `input#password`,
		LoginSubmit:   `button[type="submit"]`,

		GlobalSearch: `#global-nav-typeahead`,
		PeopleSearch: `li[aria-label="Search for people"]`,

		CityFilter: FilterSelectors{
			Button:     `button[aria-label*="Locations filter"]`,
			Input:      `input[placeholder="Add a country/region"]`,
			Suggestion: `div[role="listbox"] [role="option"]`,
			Apply:      `fieldset[class*="geoRegion"] button[data-control-name="filter_pill_apply"]`,
		},
		CompanyFilter: FilterSelectors{
			Button:     `button[aria-label*="Current companies filter"]`,
			Input:      `input[placeholder="Add a current company"]`,
			Suggestion: `div[role="listbox"] [role="option"]`,
			Apply:      `form[aria-label*="Current companies"] button[data-control-name="filter_pill_apply"]`,
		},

		ResultsList:   `ul[class*="search-results"]`,
		ResultItem:    `ul[class*="search-results"] > li:not([class*="cross-promo"])`,
		Name:          `span[class*="actor-name"]`,
		Position:      `p[class*="search-result__truncate"]`,
		ProfileLink:   `a[data-control-name="search_srp_result"]`,
		PageButton:    `button[aria-label*="Page"]`,
		PageBody:      `body`,
		BlockedMarker: `Search limit reached`,
	}
}

// Validate reports every empty selector.
func (s Selectors) Validate() error {
	var errs []error
	required := map[string]string{
		"login_username":            s.LoginUsername,
		"login_password":            s.LoginPassword,
		"login_submit":              s.LoginSubmit,
		"global_search":             s.GlobalSearch,
		"people_search":             s.PeopleSearch,
		"city_filter.button":        s.CityFilter.Button,
		"city_filter.input":         s.CityFilter.Input,
		"city_filter.suggestion":    s.CityFilter.Suggestion,
		"city_filter.apply":         s.CityFilter.Apply,
		"company_filter.button":     s.CompanyFilter.Button,
		"company_filter.input":      s.CompanyFilter.Input,
		"company_filter.suggestion": s.CompanyFilter.Suggestion,
		"company_filter.apply":      s.CompanyFilter.Apply,
		"results_list":              s.ResultsList,
		"result_item":               s.ResultItem,
		"name":                      s.Name,
		"position":                  s.Position,
		"profile_link":              s.ProfileLink,
		"page_button":               s.PageButton,
		"page_body":                 s.PageBody,
		"blocked_marker":            s.BlockedMarker,
	}
	for _, key := range slices.Sorted(maps.Keys(required)) {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("selector %s is required", key))
		}
	}
	return errors.Join(errs...)
}
