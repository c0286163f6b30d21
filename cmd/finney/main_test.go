package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-patrignani/finney/ledger"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "finney dev")
}

func TestDemoScenarios(t *testing.T) {
	for _, name := range scenarioNames() {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, "demo", name, "--difficulty", "1", "--attack-delay", "10ms")
			require.NoError(t, err)
		})
	}
}

func TestDemoRejectsUnknownScenario(t *testing.T) {
	_, err := execute(t, "demo", "heist")
	require.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := execute(t, "demo", "basic", "--difficulty", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.difficulty")

	_, err = execute(t, "demo", "basic", "--admission", "lenient")
	require.Error(t, err)
}

func TestDemoNeedsTwoAccounts(t *testing.T) {
	_, err := execute(t, "demo", "basic", "--accounts", "solo")
	require.Error(t, err)
}

func loadedApp(t *testing.T, metricsAddr string) *app {
	t.Helper()
	a := &app{v: viper.New(), meter: &meter{}}
	a.v.Set("metrics.addr", metricsAddr)
	require.NoError(t, a.load())
	return a
}

func TestRunWithMetricsEndpoint(t *testing.T) {
	a := loadedApp(t, "127.0.0.1:0")

	ran := false
	err := a.run(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err, "the endpoint shuts down once the command returns")
	assert.True(t, ran)

	boom := errors.New("boom")
	err = a.run(context.Background(), func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestRunWithoutMetrics(t *testing.T) {
	a := loadedApp(t, "")
	err := a.run(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)
}

func TestNewSessionUsesConfig(t *testing.T) {
	a := loadedApp(t, "")
	a.cfg.Ledger.Accounts = []string{"x", "y"}
	a.cfg.Attack.Sender, a.cfg.Attack.Receiver = "x", "y"
	a.cfg.Attack.Delay = time.Second

	s := a.newSession()
	assert.Equal(t, []ledger.Account{{ID: "x", Balance: 100}, {ID: "y", Balance: 100}}, s.Ledger().Accounts())
	assert.Equal(t, time.Second, s.Attack().Delay())
}

func TestRenderingHelpers(t *testing.T) {
	assert.Equal(t, "abc", shortHash("abc"))
	assert.Equal(t, "0123456789abcdef...", shortHash("0123456789abcdef0123"))

	assert.Equal(t, "No pending transactions", pendingLines(nil))
	assert.Equal(t, "#1: From A to B, Amount: 30\n#2: From B to C, Amount: 5", pendingLines([]ledger.Transaction{
		{Sender: "A", Receiver: "B", Amount: 30},
		{Sender: "B", Receiver: "C", Amount: 5},
	}))

	genesis := ledger.New().Tip()
	assert.Equal(t, ledger.GenesisPayload, describeTransactions(genesis))
	assert.Equal(t, "-", describeTransactions(ledger.Block{Index: 3}))
}
