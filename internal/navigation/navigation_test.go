package navigation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/surveytypes"
)

func section(key displaykey.Key, name string) *surveytypes.Answer {
	return &surveytypes.Answer{DisplayKey: key, DisplayText: name}
}

func TestBuildOrdersBySurveyKeyAndLinksNeighbors(t *testing.T) {
	consent := section(displaykey.New(1, 1, 1, 1, 1, 0, 0), "Consent Section")
	name := section(displaykey.New(1, 2, 1, 2, 1, 0, 0), "Name")
	family := section(displaykey.New(1, 2, 1, 3, 1, 0, 0), "Family Members")

	// Deliberately out of order: Build must sort, not trust input order.
	items := Build([]*surveytypes.Answer{family, consent, name})

	require.Len(t, items, 3)
	require.Equal(t, "Consent Section", items[0].Name)
	require.Equal(t, "Name", items[1].Name)
	require.Equal(t, "Family Members", items[2].Name)

	require.Empty(t, items[0].Previous)
	require.Equal(t, items[1].Path, items[0].Next)
	require.Equal(t, items[0].Path, items[1].Previous)
	require.Equal(t, items[2].Path, items[1].Next)
	require.Equal(t, items[1].Path, items[2].Previous)
	require.Empty(t, items[2].Next)
}

func TestCurrentMatchesByPath(t *testing.T) {
	consent := section(displaykey.New(1, 1, 1, 1, 1, 0, 0), "Consent Section")
	name := section(displaykey.New(1, 2, 1, 2, 1, 0, 0), "Name")
	items := Build([]*surveytypes.Answer{consent, name})

	got := Current(items, name.DisplayKey.String())
	require.NotNil(t, got)
	require.Equal(t, "Name", got.Name)

	require.Nil(t, Current(items, "0009-0009-0009-0009-0009-0000-0000"))
}
