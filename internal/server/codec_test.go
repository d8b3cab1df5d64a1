package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type sample struct {
	UserID string `json:"userId"`
	Count  int64  `json:"count"`
}

func TestJSONCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	assert.Equal(t, CodecName, c.Name())
}

func TestJSONCodec_PlainStruct(t *testing.T) {
	var c jsonCodec
	data, err := c.Marshal(&sample{UserID: "u1", Count: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","count":3}`, string(data))

	var out sample
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, sample{UserID: "u1", Count: 3}, out)
}

func TestJSONCodec_ProtoMessage(t *testing.T) {
	var c jsonCodec
	data, err := c.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
	require.NoError(t, err)
	assert.Contains(t, string(data), "SERVING")

	var out healthpb.HealthCheckResponse
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, out.GetStatus())
}
