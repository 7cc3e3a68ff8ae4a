package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeOutput(t *testing.T) {
	out := `{
		"streams": [{"codec_type": "audio", "codec_name": "opus"}],
		"format": {"duration": "12.480000", "size": "20480", "format_name": "matroska,webm"}
	}`

	info, err := parseProbeOutput(out, 1)
	require.NoError(t, err)
	assert.InDelta(t, 12.48, info.Duration, 1e-9)
	assert.Equal(t, "opus", info.Codec)
	assert.Equal(t, "matroska", info.Format)
	assert.Equal(t, int64(20480), info.Size)
}

func TestParseProbeOutput_NoAudioStream(t *testing.T) {
	out := `{"streams": [{"codec_type": "video", "codec_name": "h264"}], "format": {}}`

	_, err := parseProbeOutput(out, 1)
	assert.ErrorIs(t, err, ErrInvalidFileType)
}

func TestParseProbeOutput_FallbackSize(t *testing.T) {
	out := `{"streams": [{"codec_type": "audio", "codec_name": "mp3"}], "format": {"duration": "n/a"}}`

	info, err := parseProbeOutput(out, 4096)
	require.NoError(t, err)
	assert.Equal(t, 0.0, info.Duration)
	assert.Equal(t, int64(4096), info.Size)
	assert.Equal(t, "unknown", info.Format)
}
