package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/SSSOC-CAN/tinysa-plugin/tinysa"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsListing(t *testing.T) {
	out, err := run(t, "commands")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"attenuate", "auto|0..30", "scan", "not implemented"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q", want)
		}
	}
}

func TestSendRejectsBeforeOpening(t *testing.T) {
	// the port does not exist, so reaching Open would give a ConnectError instead
	_, err := run(t, "send", "--port", "/dev/does-not-exist", "attenuate", "99")
	if !errors.Is(err, tinysa.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	_, err = run(t, "send", "--port", "/dev/does-not-exist", "sweep")
	if !errors.Is(err, tinysa.ErrNotImplemented) {
		t.Errorf("err = %v, want ErrNotImplemented", err)
	}
	_, err = run(t, "send", "--port", "/dev/does-not-exist", "frobnicate")
	if !errors.Is(err, tinysa.ErrUnknownCommand) {
		t.Errorf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestCaptureRequiresOutput(t *testing.T) {
	if _, err := run(t, "capture"); err == nil {
		t.Error("capture without -o accepted")
	}
}

func TestSendNegativeArguments(t *testing.T) {
	// valid negative values must get past flag parsing and validation to the port
	for _, args := range [][]string{{"levelchange", "-70"}, {"ext_gain", "-5"}} {
		_, err := run(t, append([]string{"send", "--port", "/dev/does-not-exist"}, args...)...)
		if !errors.Is(err, tinysa.ErrConnect) {
			t.Errorf("send %v: err = %v, want ErrConnect", args, err)
		}
	}
	_, err := run(t, "send", "--port", "/dev/does-not-exist", "levelchange", "-71")
	if !errors.Is(err, tinysa.ErrValidation) {
		t.Errorf("levelchange -71: err = %v, want ErrValidation", err)
	}
}
