package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderWritesOnClose(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalProvider(dir, zerolog.Nop())
	require.NoError(t, err)

	w, err := p.Create(context.Background(), "exports/a.csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, "id\n1\n")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "exports", "a.csv"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, w.Close())
	data, err := os.ReadFile(filepath.Join(dir, "exports", "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(data))
	assert.True(t, strings.HasPrefix(p.Location("exports/a.csv"), "file://"))
	assert.True(t, strings.HasSuffix(p.Location("exports/a.csv"), "/exports/a.csv"))
}

func TestLocalProviderAbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalProvider(dir, zerolog.Nop())
	require.NoError(t, err)

	w, err := p.Create(context.Background(), "a.csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, "partial")
	require.NoError(t, err)

	Abort(w, errors.New("encode failed"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalProviderRejectsEscapingKeys(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	for _, key := range []string{"", "../x", "/etc/passwd", "a/../../x"} {
		_, err := p.Create(context.Background(), key)
		assert.Error(t, err, key)
	}
}

type fakeUploadClient struct {
	mu     sync.Mutex
	bodies map[string]string
	err    error
}

func (f *fakeUploadClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bodies == nil {
		f.bodies = map[string]string{}
	}
	f.bodies[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeUploadClient) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeUploadClient) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeUploadClient) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeUploadClient) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestS3ProviderStreamsObject(t *testing.T) {
	client := &fakeUploadClient{}
	p := NewS3Provider(client, "reports", zerolog.Nop())

	w, err := p.Create(context.Background(), "exports/a.jsonl")
	require.NoError(t, err)
	_, err = io.WriteString(w, `{"id":1}`+"\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, `{"id":1}`+"\n", client.bodies["reports/exports/a.jsonl"])
	assert.Equal(t, "s3://reports/exports/a.jsonl", p.Location("exports/a.jsonl"))
}

func TestS3ProviderReportsUploadFailure(t *testing.T) {
	boom := errors.New("access denied")
	p := NewS3Provider(&fakeUploadClient{err: boom}, "reports", zerolog.Nop())

	w, err := p.Create(context.Background(), "exports/a.csv")
	require.NoError(t, err)
	_, _ = io.WriteString(w, "id\n")

	assert.ErrorIs(t, w.Close(), boom)
}
