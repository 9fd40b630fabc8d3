package s3

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xbridge"
)

// fakeS3 is an in-memory stand-in for the S3 API.
type fakeS3 struct {
	mu           sync.Mutex
	buckets      map[string]bool
	objects      map[string][]byte
	contentTypes map[string]string

	headErr   error
	createErr error
	putErr    error

	heads   int
	creates int
	regions []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		buckets:      map[string]bool{},
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
	}
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads++
	if f.headErr != nil {
		return nil, f.headErr
	}
	if !f.buckets[aws.ToString(in.Bucket)] {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if in.CreateBucketConfiguration != nil {
		f.regions = append(f.regions, string(in.CreateBucketConfiguration.LocationConstraint))
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.buckets[aws.ToString(in.Bucket)] = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[k] = data
	f.contentTypes[k] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func testConfig() Config {
	cfg := Defaults()
	cfg.Bucket = "staging"
	cfg.Prefix = "/bundles/"
	return cfg
}

func TestSink_CreatesBucketOnceAndPuts(t *testing.T) {
	api := newFakeS3()
	sink, err := NewSinkWithClient(api, testConfig())
	require.NoError(t, err)

	ctx := context.Background()
	loc, err := sink.Write(ctx, "bundle-1.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "s3://staging/bundles/bundle-1.json", loc)

	_, err = sink.Write(ctx, "bundle-2.cbor", []byte{0xa0})
	require.NoError(t, err)

	assert.Equal(t, 1, api.heads)
	assert.Equal(t, 1, api.creates)
	assert.Empty(t, api.regions)
	assert.Equal(t, `{"a":1}`, string(api.objects["staging/bundles/bundle-1.json"]))
	assert.Equal(t, "application/json", api.contentTypes["staging/bundles/bundle-1.json"])
	assert.Equal(t, "application/cbor", api.contentTypes["staging/bundles/bundle-2.cbor"])
}

func TestSink_ExistingBucket(t *testing.T) {
	api := newFakeS3()
	api.buckets["staging"] = true

	cfg := testConfig()
	cfg.Prefix = ""
	sink, err := NewSinkWithClient(api, cfg)
	require.NoError(t, err)

	loc, err := sink.Write(context.Background(), "bundle-1.json", nil)
	require.NoError(t, err)
	assert.Equal(t, "s3://staging/bundle-1.json", loc)
	assert.Equal(t, 0, api.creates)
}

func TestSink_MissingBucketWithoutAutoCreate(t *testing.T) {
	api := newFakeS3()
	cfg := testConfig()
	cfg.AutoCreate = false
	sink, err := NewSinkWithClient(api, cfg)
	require.NoError(t, err)

	_, err = sink.Write(context.Background(), "bundle-1.json", nil)
	var nf *types.NotFound
	assert.ErrorAs(t, err, &nf)
	assert.Empty(t, api.objects)
}

func TestSink_RegionalBucketAndAlreadyOwned(t *testing.T) {
	api := newFakeS3()
	api.headErr = &smithy.GenericAPIError{Code: "NoSuchBucket"}
	api.createErr = &types.BucketAlreadyOwnedByYou{}

	cfg := testConfig()
	cfg.Region = "eu-west-1"
	sink, err := NewSinkWithClient(api, cfg)
	require.NoError(t, err)

	_, err = sink.Write(context.Background(), "bundle-1.json", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"eu-west-1"}, api.regions)
}

func TestSink_HeadFailureIsRetried(t *testing.T) {
	api := newFakeS3()
	api.headErr = errors.New("network down")
	sink, err := NewSinkWithClient(api, testConfig())
	require.NoError(t, err)

	_, err = sink.Write(context.Background(), "bundle-1.json", nil)
	assert.ErrorContains(t, err, "network down")

	api.headErr = nil
	_, err = sink.Write(context.Background(), "bundle-1.json", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, api.heads)
}

func TestSink_PutFailureAndClose(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("access denied")
	sink, err := NewSinkWithClient(api, testConfig())
	require.NoError(t, err)

	_, err = sink.Write(context.Background(), "bundle-1.json", nil)
	assert.ErrorContains(t, err, "access denied")

	_, err = sink.Write(context.Background(), "a/b.json", nil)
	assert.ErrorIs(t, err, xbridge.ErrInvalidArtifactName)

	require.NoError(t, sink.Close(context.Background()))
	_, err = sink.Write(context.Background(), "bundle-1.json", nil)
	assert.ErrorIs(t, err, xbridge.ErrSinkClosed)
}

func TestConfig(t *testing.T) {
	assert.Error(t, Defaults().Validate(), "bucket is required")

	cfg := testConfig()
	cfg.AccessKeyID = "only-half"
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.Endpoint = "localhost:9000"
	cfg.UseSSL = false
	cfg.ForcePathStyle = true
	assert.Equal(t, cfg, ConfigFromMap(cfg.toMap()))
	assert.Equal(t, "http://localhost:9000", cfg.endpointURL())

	c := ConfigFromMap(map[string]any{"bucket": "b", "endpoint": "https://minio:9000"})
	assert.True(t, c.ForcePathStyle)
	assert.Equal(t, "https://minio:9000", c.endpointURL())
	assert.Equal(t, "", Defaults().endpointURL())
}

func TestNewSink_StaticCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Endpoint = "localhost:9000"
	cfg.AccessKeyID = "minioadmin"
	cfg.SecretAccessKey = "minioadmin"

	sink, err := NewSink(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, SinkName, sink.Name())
	assert.Equal(t, "bundles/x.json", sink.Key("x.json"))
}

func TestProducer_WritesVerifiableObject(t *testing.T) {
	api := newFakeS3()
	sink, err := NewSinkWithClient(api, testConfig())
	require.NoError(t, err)

	key, err := xbridge.NewKey([]byte("demo-secret-key"))
	require.NoError(t, err)

	p, err := xbridge.NewProducerBuilder().
		WithProducerID("ts-producer-001").
		WithKey(key).
		WithSinkInstance(sink).
		Build()
	require.NoError(t, err)
	defer p.Close(context.Background())

	payload, err := xbridge.FromAny(map[string]any{
		"type":     "config",
		"settings": map[string]any{"feature_x": true, "threshold": 0.75},
	})
	require.NoError(t, err)

	b, loc, err := p.Publish(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "s3://staging/bundles/bundle-"+b.ID()+".json", loc)

	data := api.objects["staging/bundles/bundle-"+b.ID()+".json"]
	got, err := xbridge.DecodeBundle(xbridge.JSONCodec{}, data)
	require.NoError(t, err)

	signer, err := xbridge.NewHMACSigner(key)
	require.NoError(t, err)
	assert.NoError(t, xbridge.Verify(got, signer))
}
