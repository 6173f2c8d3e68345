package printer

import (
	"bytes"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"sensorfusion/internal/quorum"
	"sensorfusion/internal/reconcile"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func readings(values ...float64) []quorum.Reading {
	out := make([]quorum.Reading, len(values))
	for i, v := range values {
		out[i] = quorum.Reading{SensorID: "S" + string(rune('1'+i)), Value: v}
	}
	return out
}

func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

func TestPrinter_AcceptedAfterWaiting(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	rs := readings(20.0, 20.1, 20.2)
	p.Waiting(1)
	p.Accepted(1, rs, quorum.Evaluate([]float64{20.0, 20.1, 20.2}, 0.5, 0))

	assertGolden(t, "accepted", buf.Bytes())
}

func TestPrinter_EscalatedRound(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Rejected(1, readings(20.0, 22.0, 24.0), quorum.Evaluate([]float64{20.0, 22.0, 24.0}, 0.3, 0))
	p.Reconciled(1, reconcile.Result{
		Success:       true,
		AveragedValue: 22.0,
		Message:       "Reconciled 3 sensors to average of latest readings.",
	})
	p.Reread(1, readings(22.0, 22.0, 22.0), 22.0)

	assertGolden(t, "escalated", buf.Bytes())
}

func TestPrinter_FailedReconcile(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Reconciled(2, reconcile.Result{Message: "sensor S2 unreachable"})
	p.Reread(2, readings(19.5, 30.0, 20.5), 23.333333)

	assertGolden(t, "failed_reconcile", buf.Bytes())
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	err := Error(&buf, "client failed", "sensor S1 GetLatest: unavailable", []string{
		"Start the sensor with: sensorfusion sensor --id S1",
		"Check the sensors list in the config file",
	})
	require.EqualError(t, err, "client failed")
	require.Equal(t, "client failed\n\nsensor S1 GetLatest: unavailable\n\nEither:\n"+
		"  1. Start the sensor with: sensorfusion sensor --id S1\n"+
		"  2. Check the sensors list in the config file\n", buf.String())
}
