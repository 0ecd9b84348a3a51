package tinysa

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsTwice(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()
}

func TestExecuteRecordsOutcome(t *testing.T) {
	before := testutil.ToFloat64(commandsTotal.WithLabelValues("attenuate", outcomeInvalid))
	port := newScriptedPort()
	c := NewClient(NewConnection("test", port, DefaultReadPolicy(), nil, zerolog.Nop()), zerolog.Nop())
	if _, err := c.Attenuate(31); err == nil {
		t.Fatal("attenuate 31 accepted")
	}
	after := testutil.ToFloat64(commandsTotal.WithLabelValues("attenuate", outcomeInvalid))
	if after != before+1 {
		t.Errorf("invalid count went from %v to %v", before, after)
	}
}

func TestUnknownCommandsShareOneLabel(t *testing.T) {
	c := NewClient(NewConnection("test", newScriptedPort(), DefaultReadPolicy(), nil, zerolog.Nop()), zerolog.Nop())
	before := testutil.ToFloat64(commandsTotal.WithLabelValues(unknownCommandLabel, outcomeUnknown))
	_, _ = c.Execute("warble1")
	series := testutil.CollectAndCount(commandsTotal)
	_, _ = c.Execute("warble2")
	_, _ = c.Execute("warble3")
	if got := testutil.CollectAndCount(commandsTotal); got != series {
		t.Errorf("series grew from %d to %d for unknown names", series, got)
	}
	after := testutil.ToFloat64(commandsTotal.WithLabelValues(unknownCommandLabel, outcomeUnknown))
	if after != before+3 {
		t.Errorf("unknown count went from %v to %v", before, after)
	}
}
