package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSettingsDefaults(t *testing.T) {
	t.Setenv("ARMORLAB_PROJECT", "demo-project")

	s, err := NewSettings()
	require.NoError(t, err)

	assert.Equal(t, "demo-project", s.Project)
	assert.Equal(t, "us-central1", s.Region)
	assert.Equal(t, "us-central1-a", s.Zone)
	assert.Equal(t, "web-backend", s.BackendService)
	assert.Equal(t, "lb-backend", s.BackendTag)
	assert.Equal(t, "blocklist-probe", s.PolicyName)
	assert.Equal(t, int64(1000), s.RulePriority)
	assert.Equal(t, 404, s.DenyStatus)
	assert.Equal(t, 1, s.HealthyThreshold)
	assert.Equal(t, 30, s.HealthPollAttempts)
	assert.Equal(t, 10*time.Second, s.HealthPollInterval)
	assert.Equal(t, 24, s.ReachAttempts)
	assert.Equal(t, 5*time.Second, s.ReachInterval)
	assert.Equal(t, 120*time.Second, s.PropagationDelay)
	assert.Equal(t, "e2-micro", s.MachineType)

	require.NoError(t, s.Validate())
}

func TestNewSettingsEnvOverrides(t *testing.T) {
	t.Setenv("ARMORLAB_PROJECT", "demo-project")
	t.Setenv("ARMORLAB_REGION", "europe-west1")
	t.Setenv("ARMORLAB_ZONE", "europe-west1-b")
	t.Setenv("ARMORLAB_DENY_STATUS", "403")
	t.Setenv("ARMORLAB_HEALTH_INTERVAL", "3s")

	s, err := NewSettings()
	require.NoError(t, err)

	assert.Equal(t, "europe-west1", s.Region)
	assert.Equal(t, "europe-west1-b", s.Zone)
	assert.Equal(t, 403, s.DenyStatus)
	assert.Equal(t, 3*time.Second, s.HealthPollInterval)

	require.NoError(t, s.Validate())
}

func TestValidateMissingProject(t *testing.T) {
	s, err := NewSettings()
	require.NoError(t, err)

	s.Project = ""

	err = s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Project")
}

func TestValidateZoneOutsideRegion(t *testing.T) {
	t.Setenv("ARMORLAB_PROJECT", "demo-project")
	t.Setenv("ARMORLAB_ZONE", "europe-west1-b")

	s, err := NewSettings()
	require.NoError(t, err)

	err = s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong to region")
}

func TestValidateDenyStatus(t *testing.T) {
	t.Setenv("ARMORLAB_PROJECT", "demo-project")

	s, err := NewSettings()
	require.NoError(t, err)

	for _, status := range []int{403, 404, 502} {
		s.DenyStatus = status
		assert.NoError(t, s.Validate())
	}

	s.DenyStatus = 418
	require.Error(t, s.Validate())
}

func TestValidateSSHPort(t *testing.T) {
	t.Setenv("ARMORLAB_PROJECT", "demo-project")

	s, err := NewSettings()
	require.NoError(t, err)

	s.SSHPort = "2222"
	assert.NoError(t, s.Validate())

	s.SSHPort = "not-a-port"
	require.Error(t, s.Validate())
}

func TestDenyAction(t *testing.T) {
	s := &Settings{DenyStatus: 404}
	assert.Equal(t, "deny(404)", s.DenyAction())
}
