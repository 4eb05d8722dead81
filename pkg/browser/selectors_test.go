package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSelectorsAreComplete(t *testing.T) {
	assert.NoError(t, DefaultSelectors().Validate())
}

func TestSelectorsValidateNamesMissingEntries(t *testing.T) {
	s := DefaultSelectors()
	s.ResultItem = ""
	s.CompanyFilter.Apply = ""

	err := s.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "selector result_item is required")
	assert.Contains(t, err.Error(), "selector company_filter.apply is required")
}
