package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/sensorspace/internal/reading"
)

// readingMeasurement is the InfluxDB measurement for whole readings.
const readingMeasurement = "sensor_reading"

// WriteSample writes one exported value under the measurement named
// target.
//
// Parameters:
//   - target: Measurement name, taken from the export binding
//   - tags: Index tags, typically sensor_id and sensor_name
//   - value: Measurement text; numeric text is stored as a float field
//   - at: Sample time
func (c *Client) WriteSample(target string, tags map[string]string, value string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(target, tags, map[string]any{"value": fieldValue(value)}, at))
}

// WriteReading writes one point per measurement of r.
//
// Points carry the tags device_id, sensor_id and type, plus name when the
// measurement has one.
//
// Example:
//
//	client.WriteReading(r) // sensor_reading,device_id=7,sensor_id=1,type=temperature value=21.5
func (c *Client) WriteReading(r *reading.Reading) {
	if !c.IsConnected() || r == nil {
		return
	}

	at := r.Time
	if at.IsZero() {
		at = time.Now()
	}
	deviceID := strconv.FormatUint(uint64(r.DeviceID), 10)

	for _, m := range r.Measurements() {
		tags := map[string]string{
			"device_id": deviceID,
			"sensor_id": strconv.FormatUint(uint64(m.SensorID), 10),
			"type":      m.Type.String(),
		}
		if m.Name != "" {
			tags["name"] = m.Name
		}
		c.writeAPI.WritePoint(write.NewPoint(readingMeasurement, tags, map[string]any{"value": fieldValue(m.Value)}, at))
	}
}

// fieldValue stores numeric measurement text as a float so it can be
// aggregated; anything else stays a string field.
func fieldValue(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
