package redisstream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xbridge"
)

func testConfig(s *miniredis.Miniredis) Config {
	cfg := Defaults()
	cfg.Addr = s.Addr()
	cfg.Stream = "test:bundles"
	return cfg
}

func readStream(t *testing.T, addr, stream string) []redis.XMessage {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	msgs, err := client.XRange(context.Background(), stream, "-", "+").Result()
	require.NoError(t, err)
	return msgs
}

// TestSink_Write tests adding a single artifact.
func TestSink_Write(t *testing.T) {
	s := miniredis.RunT(t)

	sink, err := NewSink(testConfig(s))
	require.NoError(t, err)
	defer sink.Close(context.Background())

	loc, err := sink.Write(context.Background(), "bundle-1.json", []byte(`{"a":1}`))
	require.NoError(t, err)

	msgs := readStream(t, s.Addr(), "test:bundles")
	require.Len(t, msgs, 1)
	assert.Equal(t, "redis://test:bundles/"+msgs[0].ID, loc)
	assert.Equal(t, "bundle-1.json", msgs[0].Values[fieldName])
	assert.Equal(t, `{"a":1}`, msgs[0].Values[fieldBody])

	written, failed := sink.Stats()
	assert.Equal(t, uint64(1), written)
	assert.Equal(t, uint64(0), failed)
}

// TestSink_StreamCreatedOnDemand tests that XADD creates the stream.
func TestSink_StreamCreatedOnDemand(t *testing.T) {
	s := miniredis.RunT(t)
	assert.False(t, s.Exists("test:bundles"))

	sink, err := NewSink(testConfig(s))
	require.NoError(t, err)
	defer sink.Close(context.Background())

	for _, name := range []string{"bundle-1.json", "bundle-2.json"} {
		_, err := sink.Write(context.Background(), name, []byte(name))
		require.NoError(t, err)
	}
	assert.True(t, s.Exists("test:bundles"))
	assert.Len(t, readStream(t, s.Addr(), "test:bundles"), 2)
}

func TestSink_WriteFailsWhenServerDown(t *testing.T) {
	s := miniredis.RunT(t)

	sink, err := NewSink(testConfig(s))
	require.NoError(t, err)
	defer sink.Close(context.Background())

	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = sink.Write(ctx, "bundle-1.json", []byte("x"))
	assert.Error(t, err)

	_, failed := sink.Stats()
	assert.Equal(t, uint64(1), failed)
}

func TestNewSink_Unreachable(t *testing.T) {
	cfg := Defaults()
	cfg.Addr = "127.0.0.1:1"
	cfg.PingTimeout = 200 * time.Millisecond

	_, err := NewSink(cfg)
	assert.Error(t, err)
}

func TestSink_WithClientAndClose(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	sink, err := NewSinkWithClient(client, testConfig(s))
	require.NoError(t, err)

	require.NoError(t, sink.Close(context.Background()))
	require.NoError(t, sink.Close(context.Background()))

	_, err = sink.Write(context.Background(), "bundle-1.json", nil)
	assert.ErrorIs(t, err, xbridge.ErrSinkClosed)

	// The borrowed client is still usable.
	assert.NoError(t, client.Ping(context.Background()).Err())

	_, err = NewSinkWithClient(nil, testConfig(s))
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	assert.NoError(t, Defaults().Validate())

	bad := Defaults()
	bad.Stream = ""
	assert.Error(t, bad.Validate())

	bad = Defaults()
	bad.MaxLenApprox = -1
	assert.Error(t, bad.Validate())

	cfg := Defaults()
	cfg.Addr = "redis:6380"
	cfg.Password = "secret"
	cfg.Stream = "s"
	cfg.MaxLenApprox = 1000
	assert.Equal(t, cfg, ConfigFromMap(cfg.toMap()))

	c := ConfigFromMap(map[string]any{"ping_timeout": "5s", "max_len_approx": 10})
	assert.Equal(t, 5*time.Second, c.PingTimeout)
	assert.Equal(t, int64(10), c.MaxLenApprox)
}

func TestProducer_PublishToStream(t *testing.T) {
	s := miniredis.RunT(t)
	key, err := xbridge.NewKey([]byte("demo-secret-key"))
	require.NoError(t, err)

	cfg := testConfig(s)
	cfg.MaxLenApprox = 1000
	p, err := NewProducer(cfg,
		WithProducerID("ts-producer-001"),
		WithKey(key),
		WithSaveTimeout(2*time.Second),
	)
	require.NoError(t, err)
	defer p.Close(context.Background())

	payload, err := xbridge.FromAny(map[string]any{
		"type":   "event",
		"name":   "user_action",
		"userId": "user-123",
	})
	require.NoError(t, err)

	b, loc, err := p.Publish(context.Background(), payload)
	require.NoError(t, err)

	msgs := readStream(t, s.Addr(), "test:bundles")
	require.Len(t, msgs, 1)
	assert.Equal(t, "redis://test:bundles/"+msgs[0].ID, loc)
	assert.Equal(t, xbridge.ArtifactName(b.ID()), msgs[0].Values[fieldName])

	body, ok := msgs[0].Values[fieldBody].(string)
	require.True(t, ok)
	got, err := xbridge.DecodeBundle(xbridge.JSONCodec{}, []byte(body))
	require.NoError(t, err)
	assert.True(t, got.Equal(b))

	signer, err := xbridge.NewHMACSigner(key)
	require.NoError(t, err)
	assert.NoError(t, xbridge.Verify(got, signer))
}

func TestRegisteredSink(t *testing.T) {
	s := miniredis.RunT(t)
	sink, err := xbridge.NewSink(SinkName, map[string]any{"addr": s.Addr()})
	require.NoError(t, err)
	defer sink.Close(context.Background())
	assert.Equal(t, SinkName, sink.Name())
}
