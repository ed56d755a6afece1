package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

func TestDeclaredGroupsCoverTaxonomy(t *testing.T) {
	require.NoError(t, Validate(Groups()))
	assert.Len(t, constants.Columns, 68)
}

func TestGroupsUnionExactlyOnce(t *testing.T) {
	counts := map[string]int{}
	for _, g := range Groups() {
		for _, f := range g.Fields {
			counts[f]++
		}
	}
	for _, f := range constants.MetadataFields() {
		counts[f]++
	}

	for _, f := range constants.ExtractedFields() {
		n := counts[f]
		if assert.Contains(t, counts, f) && n > 1 {
			assert.Contains(t, OverlapFields, f, "field %s declared %d times", f, n)
		}
	}
	assert.Len(t, counts, len(constants.ExtractedFields()))
}

func TestValidateRejectsDuplicateField(t *testing.T) {
	gs := Groups()
	gs[0].Fields = append(gs[0].Fields, "term")

	err := Validate(gs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"term"`)
}

func TestValidateRejectsMissingField(t *testing.T) {
	gs := Groups()
	gs[len(gs)-2].Fields = gs[len(gs)-2].Fields[:1] // governing law loses arbitration_in_state_of

	err := Validate(gs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arbitration_in_state_of")
}

func TestValidateRejectsMetadataField(t *testing.T) {
	gs := Groups()
	gs[0].Fields = append(gs[0].Fields, constants.FieldForm)

	require.Error(t, Validate(gs))
}

func TestExhibitGroupDeclaredLast(t *testing.T) {
	gs := Groups()
	assert.Equal(t, GroupExhibit, gs[len(gs)-1].Name)
	assert.ElementsMatch(t, OverlapFields, gs[len(gs)-1].Fields)
}

func TestGroupsReturnsCopies(t *testing.T) {
	a := Groups()
	a[0].Fields[0] = "mutated"
	assert.NotEqual(t, "mutated", Groups()[0].Fields[0])
}

func TestEveryServiceFieldHasDefinition(t *testing.T) {
	for _, f := range ServiceFields() {
		assert.NotEmpty(t, Definition(f), f)
	}
	assert.NotContains(t, ServiceFields(), constants.FieldForm)
	assert.NotContains(t, ServiceFields(), constants.ColumnURL)
}
