package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/process"
)

func noop(ctx context.Context, pcs *process.Process, params map[string]any) (*models.TaskResult, error) {
	return nil, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&Component{Name: "test.Echo", Execute: noop}))

	c, err := r.Lookup("test.Echo")
	require.NoError(t, err)
	assert.Equal(t, "test.Echo", c.Name)
}

func TestLookupUnknownModule(t *testing.T) {
	r := New()
	_, err := r.Lookup("test.Missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrComponentNotFound)
	assert.Contains(t, err.Error(), "test.Missing")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&Component{Name: "test.Echo", Execute: noop}))
	assert.Error(t, r.Register(&Component{Name: "test.Echo", Execute: noop}))
}

func TestRegisterRejectsIncomplete(t *testing.T) {
	r := New()
	assert.Error(t, r.Register(&Component{Execute: noop}))
	assert.Error(t, r.Register(&Component{Name: "test.NoExec"}))
}

func TestListIsSorted(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&Component{Name: "b.Second", Execute: noop}))
	require.NoError(t, r.Register(&Component{Name: "a.First", Execute: noop}))
	assert.Equal(t, []string{"a.First", "b.Second"}, r.List())
}
