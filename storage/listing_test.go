package storage

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

func TestDeliveryRoundTrip(t *testing.T) {
	require.Nil(t, encodeDelivery(nil))
	require.Nil(t, decodeDelivery(nil))

	empty := encodeDelivery([]string{})
	require.Equal(t, "[]", *empty)
	require.Equal(t, []string{}, decodeDelivery(empty))

	two := encodeDelivery([]string{"IN_PERSON", "SHIPPING"})
	require.Equal(t, []string{"IN_PERSON", "SHIPPING"}, decodeDelivery(two))

	bad := "not json"
	require.Nil(t, decodeDelivery(&bad))
}

type fakePutter struct {
	in   *s3.PutObjectInput
	body string
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	putter := &fakePutter{}
	a := &S3Archiver{client: putter, bucket: "radar", prefix: "raw"}

	require.NoError(t, a.Archive(context.Background(), "search/2026-03-01/080000/boat.html", []byte("<html/>")))
	require.Equal(t, "radar", *putter.in.Bucket)
	require.Equal(t, "raw/search/2026-03-01/080000/boat.html", *putter.in.Key)
	require.Equal(t, "<html/>", putter.body)
}
