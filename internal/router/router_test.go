package router

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/taxonomy"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter(t *testing.T) *Router {
	t.Helper()
	r, err := New(taxonomy.Groups(), quietLogger())
	require.NoError(t, err)
	return r
}

func sampleDoc() entity.ContractDocument {
	return entity.ContractDocument{
		URL:      "https://www.sec.gov/Archives/edgar/data/1/ex10-2.htm",
		Metadata: entity.Metadata{Type: "EX-10.2"},
		Sections: []entity.Section{
			{Number: "0", Title: "Preamble", Text: "This Agreement is made between Seebeks Corp. and Acme Inc."},
			{Number: "1", Title: "Payment Terms", Text: "Buyer shall pay $3,500 per month."},
			{Number: "2", Title: "Confidentiality", Text: "Each party shall keep secrets."},
			{Number: "Exhibit A", Title: "", Text: "Fee schedule: $3,500 monthly."},
		},
	}
}

func TestRoutePaymentSelectsPaymentTerms(t *testing.T) {
	routed := newRouter(t).Route(sampleDoc())

	gs, ok := routed.Lookup(taxonomy.GroupPayment)
	require.True(t, ok)
	assert.False(t, gs.Fallback)
	require.Len(t, gs.Sections, 1)
	assert.Equal(t, "Payment Terms", gs.Sections[0].Title)
}

func TestRouteFallsBackToFullDocument(t *testing.T) {
	doc := sampleDoc()
	routed := newRouter(t).Route(doc)

	gs, ok := routed.Lookup(taxonomy.GroupWarranties)
	require.True(t, ok)
	assert.True(t, gs.Fallback)
	assert.Equal(t, doc.Sections, gs.Sections)
}

func TestRouteMatchesSectionNumber(t *testing.T) {
	routed := newRouter(t).Route(sampleDoc())

	gs, ok := routed.Lookup(taxonomy.GroupExhibit)
	require.True(t, ok)
	assert.False(t, gs.Fallback)
	require.Len(t, gs.Sections, 1)
	assert.Equal(t, "Exhibit A", gs.Sections[0].Number)
}

func TestRouteIsCaseInsensitiveAndOrdered(t *testing.T) {
	doc := entity.ContractDocument{Sections: []entity.Section{
		{Number: "1", Title: "TERM AND TERMINATION"},
		{Number: "2", Title: "Fees"},
		{Number: "3", Title: "Renewal"},
	}}
	gs, ok := newRouter(t).Route(doc).Lookup(taxonomy.GroupTerm)
	require.True(t, ok)
	require.Len(t, gs.Sections, 2)
	assert.Equal(t, "1", gs.Sections[0].Number)
	assert.Equal(t, "3", gs.Sections[1].Number)
}

func TestRouteDeterministic(t *testing.T) {
	r := newRouter(t)
	doc := sampleDoc()
	first := r.Route(doc)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Route(doc))
	}
}

func TestRouteKeepsGroupOrder(t *testing.T) {
	routed := newRouter(t).Route(sampleDoc())
	groups := taxonomy.Groups()
	require.Len(t, routed, len(groups))
	for i, g := range groups {
		assert.Equal(t, g.Name, routed[i].Group.Name)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New([]taxonomy.FieldGroup{{Name: "bad", Patterns: []string{"("}}}, quietLogger())
	require.Error(t, err)
}
