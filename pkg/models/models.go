package models

import (
	"fmt"

	"peoplescraper/pkg/normalize"
)

// EmployeeRecord is one search result row. Build it with NewEmployeeRecord so
// both fields are normalized at creation time.
type EmployeeRecord struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

// NewEmployeeRecord strips diacritics from both fields, keeping case.
func NewEmployeeRecord(name, position string) EmployeeRecord {
	return EmployeeRecord{
		Name:     normalize.StripDiacritics(name),
		Position: normalize.StripDiacritics(position),
	}
}

// SearchTarget is one (city, company) search scope.
type SearchTarget struct {
	City    string `json:"city"`
	Company string `json:"company"`
}

func (t SearchTarget) String() string {
	return fmt.Sprintf("%s/%s", t.City, t.Company)
}

// Targets expands cities x companies, cities outer and companies inner.
// Callers rely on this order for the layout of run results.
func Targets(cities, companies []string) []SearchTarget {
	targets := make([]SearchTarget, 0, len(cities)*len(companies))
	for _, city := range cities {
		for _, company := range companies {
			targets = append(targets, SearchTarget{City: city, Company: company})
		}
	}
	return targets
}

// Dedupe returns the distinct records of in, keeping first occurrences in order.
func Dedupe(in []EmployeeRecord) []EmployeeRecord {
	seen := make(map[EmployeeRecord]bool, len(in))
	out := make([]EmployeeRecord, 0, len(in))
	for _, r := range in {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
