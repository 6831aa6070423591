package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	p := New(nil)
	_, err := p.Publish(context.Background(), "jobs", map[string]string{"job_id": "j"})
	require.EqualError(t, err, "pubsub publisher is not configured")
	require.NoError(t, p.Close())
}

func TestDialRequiresProjectAndTopic(t *testing.T) {
	t.Parallel()

	_, err := Dial(context.Background(), "", "topic")
	require.Error(t, err)
	_, err = Dial(context.Background(), "project", "")
	require.Error(t, err)
}

// Sets the global propagator, so not parallel.
func TestPublishSendsPayloadWithTraceContext(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer func() { require.NoError(t, srv.Close()) }()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer func() { require.NoError(t, conn.Close()) }()

	client, err := pubsub.NewClient(ctx, "resolver-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	topic, err := client.CreateTopic(ctx, "job-events")
	require.NoError(t, err)

	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	tp := sdktrace.NewTracerProvider()
	defer func() { require.NoError(t, tp.Shutdown(ctx)) }()
	spanCtx, span := tp.Tracer("publisher-test").Start(ctx, "run_job")
	defer span.End()

	p := New(topic)
	payload := map[string]any{"job_id": "job-1", "state": "done", "total": 2}
	id, err := p.Publish(spanCtx, "job-events", payload)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, p.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	msg := msgs[0]
	require.Equal(t, id, msg.ID)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	require.Equal(t, "job-1", got["job_id"])
	require.Equal(t, "done", got["state"])
	require.EqualValues(t, 2, got["total"])

	require.Equal(t, "job-events", msg.Attributes["topic"])
	require.Contains(t, msg.Attributes["traceparent"], span.SpanContext().TraceID().String())
}
