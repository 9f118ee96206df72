package jobs

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 2)

	assert.Equal(t, JobFetchGrades, defs[0].Name)
	assert.Equal(t, "3", defs[0].Hour)
	assert.Equal(t, JobCheckCompletedRefcourses, defs[1].Name)
	assert.Equal(t, "4", defs[1].Hour)

	for _, def := range defs {
		assert.Equal(t, Random, def.Minute)
		assert.Equal(t, "1-5", def.DayOfWeek)
	}
}

func TestResolveSchedule(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, def := range Definitions() {
		spec, err := ResolveSchedule(def, rng)
		require.NoError(t, err)

		fields := strings.Fields(spec)
		require.Len(t, fields, 5, spec)
		minute, err := strconv.Atoi(fields[0])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, minute, 0)
		assert.Less(t, minute, 60)
		assert.Equal(t, []string{def.Hour, "*", "*", "1-5"}, fields[1:])
	}

	t.Run("fixed fields pass through", func(t *testing.T) {
		spec, err := ResolveSchedule(Definition{Name: "x", Minute: "15", Hour: "2"}, rng)
		require.NoError(t, err)
		assert.Equal(t, "15 2 * * *", spec)
	})

	t.Run("invalid field", func(t *testing.T) {
		_, err := ResolveSchedule(Definition{Name: "x", Minute: "0", Hour: "25"}, rng)
		assert.Error(t, err)
	})
}
