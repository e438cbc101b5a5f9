package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooling-api/tooling-go/internal/logging"
	"github.com/tooling-api/tooling-go/pkg/composite"
	"github.com/tooling-api/tooling-go/pkg/engine"
)

func TestServeTCPWithDescription(t *testing.T) {
	dir := t.TempDir()
	desc := "models:\n  GradleBuild:\n    rootProject: app\nfailures:\n  ProjectPublications: no publishing plugin\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, engine.DescriptionFile), []byte(desc), 0o644))

	d, err := engine.LoadDescription(dir)
	require.NoError(t, err)
	srv := engine.NewServer("2.13", engine.WithRegistry(d.Registry()), engine.WithRootValidator(directoryExists))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveTCP(ctx, srv, ln, logging.NewNop()) }()

	b := composite.NewBuilder()
	p, err := b.NewParticipant(dir).UseInstallation("tcp://" + ln.Addr().String()).Create()
	require.NoError(t, err)
	conn, err := b.Build()
	require.NoError(t, err)

	rs, err := conn.GetModels(context.Background(), "GradleBuild")
	require.NoError(t, err)
	r, err := rs.FindByIdentity(p.Identity())
	require.NoError(t, err)
	m, ok := r.Model()
	require.True(t, ok, "fetch failed: %v", r)
	var model map[string]any
	require.NoError(t, m.Decode(&model))
	assert.Equal(t, "app", model["rootProject"])

	rs, err = conn.GetModels(context.Background(), "ProjectPublications")
	require.NoError(t, err)
	r, _ = rs.FindByIdentity(p.Identity())
	failure, failed := r.Failure()
	require.True(t, failed)
	assert.Equal(t, "Could not build a model of type 'ProjectPublications': no publishing plugin", failure.Error())

	require.NoError(t, conn.Close())
	cancel()
	assert.NoError(t, <-done)
}

func TestDirectoryExists(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, directoryExists(dir))

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.ErrorContains(t, directoryExists(file), "is not a directory")
	assert.ErrorContains(t, directoryExists(filepath.Join(dir, "missing")), "build root unavailable")
}

func TestRootCmdRequiresProjectDir(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--engine-version", "2.8"})
	assert.Error(t, cmd.Execute())
}
