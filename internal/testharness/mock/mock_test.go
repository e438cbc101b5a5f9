package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooling-api/tooling-go/internal/testharness/mock"
	"github.com/tooling-api/tooling-go/pkg/transport"
	"github.com/tooling-api/tooling-go/pkg/wire"
)

func TestFleetServesModels(t *testing.T) {
	fleet := mock.NewFleet()
	fleet.Install("/engines/2.13", mock.NewEngine("2.13").WithModel("GradleBuild", map[string]any{"name": "app"}))

	ctx := context.Background()
	rwc, err := fleet.Dial(ctx, transport.Target{RootDir: "/work/app", Location: "/engines/2.13"})
	require.NoError(t, err)
	assert.Equal(t, 1, fleet.OpenStreams())

	sess, err := transport.OpenSession(ctx, rwc, "/work/app", transport.SessionOptions{Client: "test"})
	require.NoError(t, err)
	assert.Equal(t, "2.13", sess.EngineVersion())

	resp, err := sess.RequestModel(ctx, "GradleBuild")
	require.NoError(t, err)
	assert.Equal(t, wire.StatusSuccess, resp.Status)

	require.NoError(t, sess.Close())
	fleet.Wait()
	assert.Equal(t, 0, fleet.OpenStreams())
	assert.Equal(t, 1, fleet.Dials("/engines/2.13"))
}

func TestFleetDialFailures(t *testing.T) {
	fleet := mock.NewFleet()
	fleet.Install("/engines/broken", mock.NewEngine("2.0").FailDial(mock.ErrEngineUnavailable))

	_, err := fleet.Dial(context.Background(), transport.Target{Location: "/engines/broken"})
	assert.ErrorIs(t, err, mock.ErrEngineUnavailable)

	_, err = fleet.Dial(context.Background(), transport.Target{Location: "/engines/missing"})
	assert.ErrorIs(t, err, mock.ErrNoEngine)

	assert.Equal(t, 2, fleet.TotalDials())
	assert.Equal(t, 0, fleet.OpenStreams())
}

func TestFleetDisconnect(t *testing.T) {
	fleet := mock.NewFleet()
	fleet.Install("/engines/flaky", mock.NewEngine("2.5").Disconnect())

	ctx := context.Background()
	rwc, err := fleet.Dial(ctx, transport.Target{Location: "/engines/flaky"})
	require.NoError(t, err)
	sess, err := transport.OpenSession(ctx, rwc, "/work/app", transport.SessionOptions{})
	require.NoError(t, err)

	_, err = sess.RequestModel(ctx, "GradleBuild")
	require.Error(t, err)
	_ = sess.Close()
	fleet.Wait()
}

func TestFleetHangHonoursCancellation(t *testing.T) {
	fleet := mock.NewFleet()
	fleet.Install("/engines/stuck", mock.NewEngine("2.5").Hang())

	rwc, err := fleet.Dial(context.Background(), transport.Target{Location: "/engines/stuck"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = transport.OpenSession(ctx, rwc, "/work/app", transport.SessionOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

	fleet.Wait()
	assert.Equal(t, 0, fleet.OpenStreams())
}

func TestSlowBuilderCancelled(t *testing.T) {
	b := mock.SlowBuilder(time.Hour, "never")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.BuildModel(ctx, "/work/app")
	assert.ErrorIs(t, err, context.Canceled)
}
