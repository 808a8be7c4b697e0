package deploy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReady_RequiresBothSignals(t *testing.T) {
	sim := healthySim()
	sim.boundAfter = 2 // remote confirms on the second poll
	d, _ := newTestDeployer(t, sim)
	d.readinessAttempts = 5

	var sleeps int
	d.sleep = func(time.Duration) { sleeps++ }

	_, err := d.Deploy(context.Background(), DeployOptions{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sleeps, 1, "expected at least one poll interval before readiness")
}

func TestWaitReady_RemoteOnlyTimesOut(t *testing.T) {
	sim := healthySim()
	sim.dialErr = errors.New("connection refused")
	d, _ := newTestDeployer(t, sim)

	_, err := d.Deploy(context.Background(), DeployOptions{})
	require.Error(t, err)

	var phaseErr *PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, PhaseLaunch, phaseErr.Phase)
	assert.Contains(t, err.Error(), "remote port bound=true")
	assert.Contains(t, err.Error(), "locally reachable=false")
	assert.Contains(t, err.Error(), "3 attempts")
}

func TestWaitReady_LocalOnlyTimesOut(t *testing.T) {
	sim := healthySim()
	sim.boundAfter = 0 // remote never confirms the bind
	d, _ := newTestDeployer(t, sim)

	_, err := d.Deploy(context.Background(), DeployOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote port bound=false")
	assert.Contains(t, err.Error(), "locally reachable=true")
}

func TestWaitReady_TimeoutIncludesAdapterLogTail(t *testing.T) {
	sim := healthySim()
	sim.boundAfter = 0
	sim.dialErr = errors.New("connection refused")
	sim.logTail = "bind: address already in use"
	d, _ := newTestDeployer(t, sim)

	_, err := d.Deploy(context.Background(), DeployOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")

	var phaseErr *PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Contains(t, phaseErr.Remediation, "cat ~/cortex-adapter.log")
}

func TestReadinessState_String(t *testing.T) {
	s := readinessState{RemoteBound: true, LocalReachable: false, Attempts: 7}
	assert.Equal(t, "remote port bound=true, locally reachable=false after 7 attempts", s.String())
}
