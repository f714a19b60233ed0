package cschedtest_test

import (
	"testing"

	"github.com/gordian-engine/cocoon/csched"
	"github.com/gordian-engine/cocoon/csched/cschedtest"
	"github.com/stretchr/testify/require"
)

var _ csched.Scheduler = (*cschedtest.Manual)(nil)

func TestManual_RunIdle_includesNestedTasks(t *testing.T) {
	t.Parallel()

	var m cschedtest.Manual

	var order []int
	m.Schedule(func() {
		order = append(order, 1)
		m.Schedule(func() { order = append(order, 3) })
	})
	m.Schedule(func() { order = append(order, 2) })

	require.Equal(t, 2, m.Pending())
	require.Empty(t, order)

	require.Equal(t, 3, m.RunIdle())
	require.Equal(t, []int{1, 2, 3}, order)
	require.Zero(t, m.Pending())
	require.Equal(t, 3, m.Ran())
}

func TestManual_Step(t *testing.T) {
	t.Parallel()

	var m cschedtest.Manual
	require.False(t, m.Step())

	n := 0
	m.Schedule(func() { n++ })
	m.Schedule(func() { n++ })

	require.True(t, m.Step())
	require.Equal(t, 1, n)
	require.Equal(t, 1, m.Pending())
}
