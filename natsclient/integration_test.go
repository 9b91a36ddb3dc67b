//go:build integration

package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startNATSContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForListeningPort("4222/tcp"),
		Cmd:          []string{"-js"},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	return container, fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestIntegration_ConnectPublish(t *testing.T) {
	ctx := context.Background()
	container, url := startNATSContainer(ctx, t)
	defer container.Terminate(ctx)

	client, err := NewClient(url, WithName("syncmedia-it"))
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	defer client.Close(ctx)

	assert.True(t, client.IsHealthy())
	rtt, err := client.RTT()
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()
	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe("frames.raw", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	require.NoError(t, client.Publish(ctx, "frames.raw", []byte{0x7E, 0x01, 0x7E}))
	select {
	case msg := <-msgs:
		assert.Equal(t, []byte{0x7E, 0x01, 0x7E}, msg.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestIntegration_PublishToStream(t *testing.T) {
	ctx := context.Background()
	container, url := startNATSContainer(ctx, t)
	defer container.Terminate(ctx)

	client, err := NewClient(url)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	defer client.Close(ctx)

	require.NoError(t, client.EnsureStream(ctx, "FRAMES", "frames.>"))
	require.NoError(t, client.EnsureStream(ctx, "FRAMES", "frames.>"), "idempotent")
	require.NoError(t, client.PublishToStream(ctx, "frames.meter", []byte("abc")))

	js, err := client.jetStream()
	require.NoError(t, err)
	stream, err := js.Stream(ctx, "FRAMES")
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}
