package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefinitionOfIsTotalAndDeterministic(t *testing.T) {
	for _, id := range IDs() {
		first, err := DefinitionOf(id)
		require.NoError(t, err)
		second, err := DefinitionOf(id)
		require.NoError(t, err)

		require.Equal(t, first, second)
		require.Equal(t, id, first.ID)
		require.NotEmpty(t, first.DisplayName)
		require.NotEmpty(t, first.Modules)
		require.NoError(t, first.DefaultTheme.Validate())
	}
}

func TestDefinitionOfUnknown(t *testing.T) {
	_, err := DefinitionOf("not-a-segment")

	var unknown *UnknownSegmentError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, SegmentID("not-a-segment"), unknown.ID)
	require.ErrorIs(t, err, ErrUnknownSegment)
}

func TestDefinitionOfReturnsCopies(t *testing.T) {
	def, err := DefinitionOf("agro")
	require.NoError(t, err)
	def.Modules[0] = "hacked"
	def.DefaultTheme.LayoutPriorities[0] = "hacked"

	again, err := DefinitionOf("agro")
	require.NoError(t, err)
	require.Equal(t, ModuleDashboard, again.Modules[0])
	require.Equal(t, "harvest", again.DefaultTheme.LayoutPriorities[0])
}

func TestModulesAreUnique(t *testing.T) {
	for _, def := range All() {
		seen := map[ModuleCode]bool{}
		for _, m := range def.Modules {
			require.False(t, seen[m], "segment %s lists %s twice", def.ID, m)
			seen[m] = true
		}
	}
}

func TestDefaultSegmentIsKnown(t *testing.T) {
	require.True(t, Contains(DefaultSegment))
	require.Equal(t, DefaultSegment, IDs()[0])
}

func TestModulesFor(t *testing.T) {
	mods, err := ModulesFor("health")
	require.NoError(t, err)
	require.Equal(t, []ModuleCode{ModuleDashboard, ModuleAppointments, ModulePatients, ModuleFinances, ModuleReports, ModuleSettings}, mods)

	_, err = ModulesFor("nope")
	require.ErrorIs(t, err, ErrUnknownSegment)
}

func TestParse(t *testing.T) {
	cases := map[string]SegmentID{
		"agro":        "agro",
		" Agro ":      "agro",
		"E-Commerce":  "ecommerce",
		"e_commerce":  "ecommerce",
		"Food":        "food",
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}

	_, err := Parse("aerospace")
	require.ErrorIs(t, err, ErrUnknownSegment)
}

func TestMustBuildPanicsOnDuplicateModules(t *testing.T) {
	def := builtin[0].clone()
	def.Modules = append(def.Modules, def.Modules[0])
	require.Panics(t, func() { mustBuild([]Definition{def}) })
}

func TestArrangeModules(t *testing.T) {
	mods := []ModuleCode{ModuleDashboard, ModuleFinances, ModuleGoals, ModuleReports}

	got := ArrangeModules(mods, []string{"goals", "unknown", "dashboard", "goals"})
	require.Equal(t, []ModuleCode{ModuleGoals, ModuleDashboard, ModuleFinances, ModuleReports}, got)

	require.Equal(t, mods, ArrangeModules(mods, nil))
}
