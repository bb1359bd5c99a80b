package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrder(t *testing.T) {
	jobA, jobB := &stubJob{name: "a"}, &stubJob{name: "b"}
	registry, err := NewRegistry(jobA, jobB)
	require.NoError(t, err)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, jobA, jobs[0])
	assert.Same(t, jobB, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsInvalidJobs(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"})
	assert.Error(t, err)

	registry, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&stubJob{}))
	assert.Empty(t, registry.Jobs())
}
