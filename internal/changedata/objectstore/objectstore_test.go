package objectstore

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"
)

func TestNew_RequiresEndpointAndBucket(t *testing.T) {
	_, err := New(context.Background(), Config{Bucket: "grids"})
	assert.ErrorContains(t, err, "requires an endpoint")

	_, err = New(context.Background(), Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "requires an endpoint and a bucket")
}

func TestKeyLayout(t *testing.T) {
	s := &Store{bucket: "grids", prefix: "changes"}
	assert.Equal(t, s.key("12/eval", 3), "changes/12/eval/part-00003.gz")

	s = &Store{bucket: "grids"}
	assert.Equal(t, s.dir("12/eval"), "12/eval/")
}
