package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

func TestPlanResolver_AllowList(t *testing.T) {
	r, err := NewPlanResolver(PlanConfig{ProInstallations: []int64{11, 22}})
	require.NoError(t, err)

	assert.Equal(t, model.PlanPro, r.PlanFor(11))
	assert.Equal(t, model.PlanPro, r.PlanFor(22))
	assert.Equal(t, model.PlanFree, r.PlanFor(33))
}

func TestPlanResolver_PlansFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`installations:
  - id: 100
    plan: pro
    note: Acme Corp
  - id: 11
    plan: free
`), 0o600))

	r, err := NewPlanResolver(PlanConfig{ProInstallations: []int64{11}, PlansFile: path})
	require.NoError(t, err)

	assert.Equal(t, model.PlanPro, r.PlanFor(100))
	assert.Equal(t, model.PlanFree, r.PlanFor(11), "file entries take precedence over the env list")
}

func TestPlanResolver_PlansFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewPlanResolver(PlanConfig{PlansFile: filepath.Join(dir, "missing.yaml")})
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("installations:\n  - id: 1\n    plan: enterprise\n"), 0o600))
	_, err = NewPlanResolver(PlanConfig{PlansFile: bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enterprise")
}

func TestPlanResolver_Override(t *testing.T) {
	r, err := NewPlanResolver(PlanConfig{Override: "pro", AllowOverride: true})
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, r.PlanFor(1))

	r, err = NewPlanResolver(PlanConfig{Override: "pro"})
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, r.PlanFor(1), "override must be ignored outside tests")

	_, err = NewPlanResolver(PlanConfig{Override: "gold", AllowOverride: true})
	require.Error(t, err)
}
