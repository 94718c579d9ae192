package theme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReorderLayoutPriorities(t *testing.T) {
	cases := []struct {
		name    string
		current []string
		promote string
		want    []string
	}{
		{"moves to front", []string{"dashboard", "finances", "goals"}, "finances", []string{"finances", "dashboard", "goals"}},
		{"already first", []string{"dashboard", "finances"}, "dashboard", []string{"dashboard", "finances"}},
		{"absent is inserted", []string{"dashboard", "finances"}, "inventory", []string{"inventory", "dashboard", "finances"}},
		{"duplicates collapse", []string{"goals", "dashboard", "goals", "finances", "dashboard"}, "finances", []string{"finances", "goals", "dashboard"}},
		{"empty list", nil, "dashboard", []string{"dashboard"}},
		{"empty promote dedupes", []string{"a", "b", "a"}, "", []string{"a", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ReorderLayoutPriorities(tc.current, tc.promote))
		})
	}
}

func TestReorderLayoutPrioritiesDoesNotMutateInput(t *testing.T) {
	in := []string{"dashboard", "finances", "goals"}
	_ = ReorderLayoutPriorities(in, "goals")
	require.Equal(t, []string{"dashboard", "finances", "goals"}, in)
}
