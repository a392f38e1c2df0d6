package server_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/pkg/server"
)

func TestRequestRoundTrip(t *testing.T) {
	req := server.NewCompileRequest("/src/shop", []string{"compile", "--design-time", "Views/Index.cshtml"})

	var buf bytes.Buffer
	_, err := req.WriteTo(&buf)
	require.NoError(t, err)

	got, err := server.ReadRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, req, got)
	assert.Equal(t, "/src/shop", got.CurrentDirectory())
	assert.Equal(t, []string{"compile", "--design-time", "Views/Index.cshtml"}, got.CommandLine())
	assert.False(t, got.IsShutdown())
	assert.True(t, server.NewShutdownRequest().IsShutdown())
}

func TestCommandLineOrdersByIndex(t *testing.T) {
	req := &server.Request{Arguments: []server.Argument{
		{ID: server.ArgCommandLine, Index: 1, Value: "b"},
		{ID: server.ArgTempDirectory, Value: "/tmp"},
		{ID: server.ArgCommandLine, Index: 0, Value: "a"},
	}}
	assert.Equal(t, []string{"a", "b"}, req.CommandLine())
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		resp server.Response
	}{
		{name: "completed", resp: &server.CompletedResponse{ReturnCode: 1, UTF8Output: true, Output: "a.cshtml(1,1): error RZ1006\n"}},
		{name: "shutdown", resp: &server.ShutdownResponse{ServerProcessID: 4242}},
		{name: "rejected", resp: &server.RejectedResponse{Reason: "busy"}},
		{name: "mismatched version", resp: &server.MismatchedVersionResponse{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, server.WriteResponse(&buf, tt.resp))
			got, err := server.ReadResponse(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.resp, got)
		})
	}
}

func TestReadErrors(t *testing.T) {
	var huge bytes.Buffer
	require.NoError(t, binary.Write(&huge, binary.LittleEndian, uint32(server.MaxMessageSize+1)))
	_, err := server.ReadRequest(&huge)
	assert.ErrorIs(t, err, server.ErrMessageTooLarge)

	var full bytes.Buffer
	_, err = server.NewCompileRequest("/", []string{"x"}).WriteTo(&full)
	require.NoError(t, err)
	truncated := full.Bytes()[:full.Len()-1]
	_, err = server.ReadRequest(bytes.NewReader(truncated))
	assert.Error(t, err)

	var unknown bytes.Buffer
	require.NoError(t, binary.Write(&unknown, binary.LittleEndian, uint32(4)))
	require.NoError(t, binary.Write(&unknown, binary.LittleEndian, int32(99)))
	_, err = server.ReadResponse(&unknown)
	assert.Error(t, err)
}
