package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/errors"
)

func TestListOrderStable(t *testing.T) {
	a := List()
	b := List()
	require.Equal(t, a, b)
	assert.Equal(t, Coordinator, a[0].Name)
	assert.Equal(t, Planner, a[1].Name)
	assert.Equal(t, Supervisor, a[2].Name)
}

func TestTeamMembersExcludeControlWorkers(t *testing.T) {
	for _, w := range TeamMembers() {
		assert.NotContains(t, []string{Coordinator, Planner, Supervisor}, w.Name)
	}
}

func TestGet(t *testing.T) {
	w, ok := Get(Browser)
	require.True(t, ok)
	assert.True(t, w.Optional)
	assert.Equal(t, []string{"browser"}, w.Tools)

	_, ok = Get("nosuch")
	assert.False(t, ok)
}

func TestValidateRoster(t *testing.T) {
	got, err := ValidateRoster(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTeam(), got)

	got, err = ValidateRoster([]string{Researcher, Reporter})
	require.NoError(t, err)
	assert.Equal(t, []string{Researcher, Reporter}, got)

	_, err = ValidateRoster([]string{})
	assert.True(t, errors.IsValidation(err))

	_, err = ValidateRoster([]string{Researcher})
	assert.True(t, errors.IsValidation(err), "reporter is mandatory")

	_, err = ValidateRoster([]string{Reporter, "intern"})
	assert.True(t, errors.IsValidation(err))

	_, err = ValidateRoster([]string{Supervisor, Reporter})
	assert.True(t, errors.IsValidation(err), "control workers are not dispatchable")

	_, err = ValidateRoster([]string{Reporter, Reporter})
	assert.True(t, errors.IsValidation(err))
}
