package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/sensorspace/internal/reading"
)

// CC128 frame markers.
var (
	cc128Prefix  = []byte("<msg><src>CC128-v")
	cc128HistTag = []byte("<hist>")
)

// cc128Msg is the subset of a CurrentCost CC128 realtime frame we use.
type cc128Msg struct {
	XMLName xml.Name     `xml:"msg"`
	Src     string       `xml:"src"`
	Tmpr    string       `xml:"tmpr"`
	Sensor  string       `xml:"sensor"`
	ID      string       `xml:"id"`
	Ch1     cc128Channel `xml:"ch1"`
	Ch2     cc128Channel `xml:"ch2"`
	Ch3     cc128Channel `xml:"ch3"`
}

type cc128Channel struct {
	Watts string `xml:"watts"`
}

// CC128 decodes realtime frames from a CurrentCost CC128 energy monitor.
type CC128 struct {
	// DeviceID is assigned to readings that have no device id yet.
	DeviceID uint32

	// TempSensorID identifies the monitor's built-in thermometer.
	TempSensorID uint32

	// Now returns the reading time. Defaults to time.Now.
	Now func() time.Time
}

// Decode appends the frame's temperature and per-channel power
// measurements to r and stamps it with the current time.
//
// History frames are discarded with ErrNoMatch.
//
// Returns:
//   - error: ErrNoMatch for non-CC128 or history frames, ErrMalformed for
//     unparsable XML or values
func (c CC128) Decode(r *reading.Reading, frame []byte) error {
	if !bytes.Contains(frame, cc128Prefix) {
		return fmt.Errorf("%w: not a CC128 message", ErrNoMatch)
	}
	if bytes.Contains(frame, cc128HistTag) {
		return fmt.Errorf("%w: history frame discarded", ErrNoMatch)
	}

	var msg cc128Msg
	if err := xml.Unmarshal(frame, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	r.Time = now().Truncate(time.Second)
	if r.DeviceID == 0 {
		r.DeviceID = c.DeviceID
	}

	found := 0

	if msg.Tmpr != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(msg.Tmpr), 64)
		if err != nil {
			return fmt.Errorf("%w: tmpr %q", ErrMalformed, msg.Tmpr)
		}
		if _, err := r.Append(reading.Measurement{
			SensorID: c.TempSensorID,
			Type:     reading.MeasTemperature,
			Name:     "Temperature (°C)",
			Value:    strconv.FormatFloat(v, 'f', 1, 64),
		}); err != nil {
			return err
		}
		found++
	}

	sensorID, err := cc128Int(msg.ID)
	if err != nil && msg.ID != "" {
		return fmt.Errorf("%w: id %q", ErrMalformed, msg.ID)
	}
	sensorNum, _ := cc128Int(msg.Sensor)

	for ch, channel := range []cc128Channel{msg.Ch1, msg.Ch2, msg.Ch3} {
		if channel.Watts == "" {
			continue
		}
		watts, err := cc128Int(channel.Watts)
		if err != nil {
			return fmt.Errorf("%w: ch%d watts %q", ErrMalformed, ch+1, channel.Watts)
		}

		name := fmt.Sprintf("Power Sensor %d (Watts)", sensorNum)
		if ch > 0 {
			name = fmt.Sprintf("Power Sensor %d ch%d (Watts)", sensorNum, ch+1)
		}
		if _, err := r.Append(reading.Measurement{
			SensorID: uint32(sensorID),
			Type:     reading.MeasPower,
			Name:     name,
			Value:    strconv.Itoa(watts),
		}); err != nil {
			return err
		}
		found++
	}

	if found == 0 {
		return fmt.Errorf("%w: no measurements in frame", ErrNoMatch)
	}
	return nil
}

// cc128Int parses a zero-padded decimal field such as "00822".
func cc128Int(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
