package backup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresAllFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	complete := Config{
		Endpoint:        "https://storage.example.com",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "snapshots",
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }},
		{"missing access key", func(c *Config) { c.AccessKeyID = "" }},
		{"missing secret", func(c *Config) { c.SecretAccessKey = "" }},
		{"missing bucket", func(c *Config) { c.Bucket = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := complete
			tt.mutate(&cfg)

			client, err := New(ctx, cfg)
			assert.Error(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestNew_CompleteConfig(t *testing.T) {
	t.Parallel()

	client, err := New(context.Background(), Config{
		Endpoint:        "https://storage.example.com",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "snapshots",
	})
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "snapshots", client.bucket)
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no such key", &types.NoSuchKey{}, true},
		{"not found type", &types.NotFound{}, true},
		{"api error NoSuchKey", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"api error NotFound", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"api error 404", &smithy.GenericAPIError{Code: "404"}, true},
		{"api error access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"wrapped no such key", fmt.Errorf("download: %w", &types.NoSuchKey{}), true},
		{
			"http 404 response",
			&smithyhttp.ResponseError{
				Response: &smithyhttp.Response{
					Response: &http.Response{StatusCode: http.StatusNotFound},
				},
				Err: errors.New("not found"),
			},
			true,
		},
		{
			"http 500 response",
			&smithyhttp.ResponseError{
				Response: &smithyhttp.Response{
					Response: &http.Response{StatusCode: http.StatusInternalServerError},
				},
				Err: errors.New("boom"),
			},
			false,
		},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}
