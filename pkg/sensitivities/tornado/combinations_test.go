package tornado

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindCombinations(t *testing.T) {
	tests := []struct {
		name string
		in   [][]string
		want [][]string
	}{
		{"no selectors", nil, [][]string{{}}},
		{"single", [][]string{{"A", "B"}}, [][]string{{"A"}, {"B"}}},
		{
			"product, last fastest",
			[][]string{{"Upper", "Lower"}, {"1", "2", "3"}},
			[][]string{
				{"Upper", "1"}, {"Upper", "2"}, {"Upper", "3"},
				{"Lower", "1"}, {"Lower", "2"}, {"Lower", "3"},
			},
		},
		{"empty list", [][]string{{"A"}, {}}, [][]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindCombinations(tt.in))
		})
	}
}

func TestFindCombinationsDoesNotAlias(t *testing.T) {
	got := FindCombinations([][]string{{"a", "b"}, {"x", "y"}})
	got[0][0] = "changed"
	assert.Equal(t, "a", got[1][0])
}
