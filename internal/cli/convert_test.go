package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/sensorspace/internal/codec"
	"github.com/nerrad567/sensorspace/internal/reading"
)

func TestConvert_JSONToINI(t *testing.T) {
	in := `{"device":{"id":"7"},"sensors":[{"id":"1","meas":"21.5"},{"id":"2","meas":"-3"}]}`

	out, err := execute(t, in, "convert", "--to", "ini")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "[reading]\n"), out)
	assert.Contains(t, out, "DID=7\n")
	assert.Contains(t, out, "MEAS=1;21.5\nMEAS=2;-3\n")
}

func TestConvert_INIToJSONFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reading.ini")
	require.NoError(t, os.WriteFile(path, []byte("[reading]\nDID=4\nMEAS=9;230\n"), 0o600))

	out, err := execute(t, "", "convert", "--from", "ini", path)
	require.NoError(t, err)

	r := reading.New()
	defer r.Release()
	require.NoError(t, codec.DecodeJSON(r, []byte(strings.TrimSpace(out))))
	assert.Equal(t, uint32(4), r.DeviceID)
	require.Equal(t, 1, r.Count())
	assert.Equal(t, "230", r.Measurement(0).Value)
	assert.False(t, r.Time.IsZero(), "validation stamps a missing date")
}

func TestConvert_CC128(t *testing.T) {
	frame := "<msg><src>CC128-v0.12</src><dsb>00327</dsb><time>03:06:50</time>" +
		"<tmpr>24.9</tmpr><sensor>0</sensor><id>00983</id><type>1</type>" +
		"<ch1><watts>00822</watts></ch1></msg>"

	out, err := execute(t, frame, "convert", "--from", "cc128", "--device-id", "20", "--temp-sensor-id", "21", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"device":{"id":"20"}`)
	assert.Contains(t, out, `"meas":"24.9"`)
	assert.Contains(t, out, `"meas":"822"`)
}

func TestConvert_InvalidReading(t *testing.T) {
	_, err := execute(t, `{"sensors":[{"id":"1","meas":"1"}]}`, "convert")
	require.Error(t, err)
	assert.ErrorIs(t, err, reading.ErrInvalidDevice)
}

func TestConvert_Malformed(t *testing.T) {
	_, err := execute(t, `{"device":{"id":"7"}`, "convert")
	assert.ErrorIs(t, err, codec.ErrMalformed)
}

func TestConvert_CannotEncodeCC128(t *testing.T) {
	_, err := execute(t, `{"device":{"id":"1"},"sensors":[{"id":"1","meas":"1"}]}`, "convert", "--to", "cc128")
	assert.ErrorIs(t, err, codec.ErrUnknownFormat)
}

func TestConvert_UnknownFormat(t *testing.T) {
	_, err := execute(t, "", "convert", "--from", "xml")
	assert.ErrorIs(t, err, codec.ErrUnknownFormat)
}

func TestConvert_CC128Stream(t *testing.T) {
	realtime := func(watts string) string {
		return "<msg><src>CC128-v0.12</src><dsb>00327</dsb><time>03:06:50</time>" +
			"<tmpr>24.9</tmpr><sensor>0</sensor><id>00983</id><type>1</type>" +
			"<ch1><watts>" + watts + "</watts></ch1></msg>\r\n"
	}
	history := "<msg><src>CC128-v0.12</src><dsb>00327</dsb><time>03:07:00</time>" +
		"<hist><dsw>00329</dsw><type>1</type></hist></msg>\r\n"
	stream := "noise" + realtime("00822") + history + realtime("01001") + "<msg><src>CC1"

	out, err := execute(t, stream, "convert", "--from", "cc128", "--device-id", "20", "--temp-sensor-id", "21")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"meas":"822"`)
	assert.Contains(t, lines[1], `"meas":"1001"`)
}

func TestConvert_CC128NoFrame(t *testing.T) {
	_, err := execute(t, "<msg><src>CC128-v0.12</src>", "convert", "--from", "cc128", "--device-id", "20")
	assert.ErrorIs(t, err, codec.ErrMalformed)
}
