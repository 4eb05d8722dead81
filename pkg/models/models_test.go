package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmployeeRecordNormalizes(t *testing.T) {
	r := NewEmployeeRecord("João Gonçalves", "Gerente de Operações")
	assert.Equal(t, "Joao Goncalves", r.Name)
	assert.Equal(t, "Gerente de Operacoes", r.Position)
}

func TestTargetsOrder(t *testing.T) {
	got := Targets([]string{"Berlin", "Paris"}, []string{"Acme", "Globex", "Initech"})
	want := []SearchTarget{
		{"Berlin", "Acme"}, {"Berlin", "Globex"}, {"Berlin", "Initech"},
		{"Paris", "Acme"}, {"Paris", "Globex"}, {"Paris", "Initech"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Targets() mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, Targets(nil, []string{"Acme"}))
}

func TestDedupe(t *testing.T) {
	in := []EmployeeRecord{
		{"Ana", "Engineer"},
		{"Bo", "Designer"},
		{"Ana", "Engineer"},
		{"Ana", "Manager"},
		{"Bo", "Designer"},
		{"Cy", "Analyst"},
	}
	want := []EmployeeRecord{
		{"Ana", "Engineer"},
		{"Bo", "Designer"},
		{"Ana", "Manager"},
		{"Cy", "Analyst"},
	}

	got := Dedupe(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dedupe() mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, in, 6, "input must not be modified")
	assert.Empty(t, Dedupe(nil))
}

func TestCrawlStateLifecycle(t *testing.T) {
	s := NewCrawlState(SearchTarget{City: "Berlin", Company: "Acme"})
	assert.Equal(t, 1, s.CurrentPage)
	assert.Equal(t, StatusInit, s.Status)
	assert.False(t, s.Resumable())
	assert.False(t, s.Finished())

	s.LastPage = 2
	s.PrefixURL = "https://example.test/search?keywords=x"
	s.Record([]EmployeeRecord{{"A", "B"}})
	s.Next()
	assert.True(t, s.Resumable())

	s.Skip()
	s.Next()
	assert.True(t, s.Finished())
	assert.Equal(t, []int{2}, s.SkippedPages)

	s.Status = StatusDone
	assert.False(t, s.Resumable())
}

func TestCrawlStateCloneIsDeep(t *testing.T) {
	s := NewCrawlState(SearchTarget{City: "Berlin", Company: "Acme"})
	s.Record([]EmployeeRecord{{"A", "B"}})
	c := s.Clone()
	s.Record([]EmployeeRecord{{"C", "D"}})
	assert.Len(t, c.Collected, 1)
}

func TestCrawlStateJSONRoundTrip(t *testing.T) {
	s := NewCrawlState(SearchTarget{City: "São Paulo", Company: "Uber"})
	s.Record([]EmployeeRecord{NewEmployeeRecord("Zé", "Dev")})
	s.Next()
	s.LastPage = 7
	s.StartedOn = "2024-05-01"

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var back CrawlState
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(s, &back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
