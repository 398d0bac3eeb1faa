// s3_test.go - Tests for the S3 backend against an in-memory client
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-twin/backend/internal/models"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
	putErr  error
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	client := newFakeS3()
	store := newS3Store(client, S3Config{Bucket: "twin"}, zerolog.Nop())
	ctx := context.Background()

	layouts, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, layouts, "missing object loads as empty")

	require.NoError(t, store.Save(ctx, []models.Layout{sampleLayout("a", "one")}))
	require.Len(t, client.puts, 1)
	assert.Equal(t, DefaultDocumentName, aws.ToString(client.puts[0].Key))
	assert.Equal(t, "application/json", aws.ToString(client.puts[0].ContentType))

	layouts, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, layouts, 1)
	assert.Equal(t, "one", layouts[0].Name)
}

func TestS3Store_CorruptObjectLoadsEmpty(t *testing.T) {
	client := newFakeS3()
	client.objects["twin/custom.json"] = []byte("{nope")
	store := newS3Store(client, S3Config{Bucket: "twin", Key: "custom.json"}, zerolog.Nop())

	layouts, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, layouts)
}

func TestS3Store_TransportErrors(t *testing.T) {
	client := newFakeS3()
	store := newS3Store(client, S3Config{Bucket: "twin"}, zerolog.Nop())
	ctx := context.Background()

	client.getErr = errors.New("connection reset")
	_, err := store.Load(ctx)
	assert.ErrorContains(t, err, "connection reset")

	client.putErr = errors.New("access denied")
	err = store.Save(ctx, nil)
	assert.ErrorContains(t, err, "access denied")
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{}, zerolog.Nop())
	assert.Error(t, err)
}
