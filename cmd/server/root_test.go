package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "sim:\n  seed: 42\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSimulateDemo(t *testing.T) {
	out, err := execute(t, "simulate", "-c", writeConfig(t), "--seconds", "5")
	require.NoError(t, err)

	var report simulationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "demo", report.Mode)
	assert.Equal(t, "demo", report.State)
	assert.Equal(t, uint64(300), report.Ticks)
	assert.InDelta(t, 5.0, report.Simulated, 1e-6)
	assert.False(t, report.Won)
}

func TestSimulateIsDeterministicForASeed(t *testing.T) {
	cfg := writeConfig(t)
	first, err := execute(t, "simulate", "-c", cfg, "--seconds", "20", "--variant", "Adamo")
	require.NoError(t, err)
	second, err := execute(t, "simulate", "-c", cfg, "--seconds", "20", "--variant", "Adamo")
	require.NoError(t, err)
	assert.JSONEq(t, first, second)

	var report simulationReport
	require.NoError(t, json.Unmarshal([]byte(first), &report))
	assert.Equal(t, "play", report.Mode)
	assert.Contains(t, []string{"play", "game_over"}, report.State)
	if report.State == "game_over" {
		assert.False(t, report.Won)
		assert.Len(t, report.Captures, 1)
	}
}

func TestSimulateRejectsBadInput(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "simulate", "-c", cfg, "--seconds", "0")
	assert.Error(t, err)

	_, err = execute(t, "simulate", "-c", cfg, "--variant", "gorilla")
	assert.ErrorContains(t, err, "gorilla")

	_, err = execute(t, "simulate", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}
