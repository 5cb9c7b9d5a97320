package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/sensorspace/internal/codec"
	"github.com/nerrad567/sensorspace/internal/infrastructure/metrics"
	"github.com/nerrad567/sensorspace/internal/reading"
	"github.com/nerrad567/sensorspace/internal/store"
)

// posted is a copy of a reading taken inside Post, before the pipeline
// releases it.
type posted struct {
	deviceID uint32
	name     string
	values   []string
}

type fakeStore struct {
	mu     sync.Mutex
	posts  []posted
	err    error
	status store.Status
}

func (s *fakeStore) Post(_ context.Context, kind store.Kind, entity any) (store.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return store.StatusOK, s.err
	}
	r, ok := entity.(*reading.Reading)
	if kind != store.KindReading || !ok {
		return store.StatusOK, store.ErrPayloadMismatch
	}
	p := posted{deviceID: r.DeviceID, name: r.Name}
	for _, m := range r.Measurements() {
		p.values = append(p.values, m.Value)
	}
	s.posts = append(s.posts, p)
	r.ID = int64(len(s.posts))
	return s.status, nil
}

type fakeExporter struct {
	calls int
	ids   []int64
}

func (e *fakeExporter) Export(_ context.Context, r *reading.Reading) int {
	e.calls++
	e.ids = append(e.ids, r.ID)
	return r.Count()
}

type fakeMirror struct {
	devices []uint32
}

func (m *fakeMirror) WriteReading(r *reading.Reading) {
	m.devices = append(m.devices, r.DeviceID)
}

const validJSON = `{"device":{"id":"7","name":"boiler"},"sensors":[{"id":"1","name":"flow","meas":"21.5"},{"id":"2","meas":"18.0"}]}`

func TestHandle_StoresExportsAndMirrors(t *testing.T) {
	st := &fakeStore{}
	ex := &fakeExporter{}
	mi := &fakeMirror{}
	p, err := New(Options{Store: st, Export: ex, Mirror: mi})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), "sensors/in", []byte(validJSON)))

	require.Len(t, st.posts, 1)
	assert.Equal(t, posted{deviceID: 7, name: "boiler", values: []string{"21.5", "18.0"}}, st.posts[0])
	// Export sees the id assigned by the store.
	assert.Equal(t, []int64{1}, ex.ids)
	assert.Equal(t, []uint32{7}, mi.devices)

	assert.Equal(t, Stats{Received: 1, Stored: 1, Exported: 2}, p.Stats())
}

func TestHandle_INI(t *testing.T) {
	st := &fakeStore{}
	p, err := New(Options{Format: codec.FormatINI, Store: st})
	require.NoError(t, err)

	payload := "[reading]\nDID=4\nMEAS=1;3.3\n"
	require.NoError(t, p.Handle(context.Background(), "t", []byte(payload)))
	require.Len(t, st.posts, 1)
	assert.Equal(t, uint32(4), st.posts[0].deviceID)
}

func TestHandle_CC128DeviceFromTopic(t *testing.T) {
	st := &fakeStore{}
	p, err := New(Options{
		Format: codec.FormatCC128,
		CC128:  codec.CC128{TempSensorID: 21},
		Store:  st,
	})
	require.NoError(t, err)

	frame := "<msg><src>CC128-v0.12</src><dsb>00327</dsb><time>03:06:50</time>" +
		"<tmpr>24.9</tmpr><sensor>0</sensor><id>00983</id><type>1</type>" +
		"<ch1><watts>00822</watts></ch1></msg>"
	require.NoError(t, p.Handle(context.Background(), "sensorspace/reading/garage/20/cc128", []byte(frame)))

	require.Len(t, st.posts, 1)
	assert.Equal(t, posted{deviceID: 20, name: "cc128", values: []string{"24.9", "822"}}, st.posts[0])
	assert.Equal(t, Stats{Received: 1, Stored: 1}, p.Stats())
}

func TestNew_CC128NeedsThermometer(t *testing.T) {
	_, err := New(Options{Format: codec.FormatCC128})
	assert.ErrorIs(t, err, ErrNoThermometer)
}

func TestHandle_DecodeErrorIsReturned(t *testing.T) {
	st := &fakeStore{}
	ex := &fakeExporter{}
	p, err := New(Options{Store: st, Export: ex})
	require.NoError(t, err)

	err = p.Handle(context.Background(), "t", []byte(`{"device":{"id":"7"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrMalformed)
	assert.Empty(t, st.posts)
	assert.Zero(t, ex.calls)
	assert.Equal(t, uint64(1), p.Stats().Rejected)
}

func TestHandle_ValidationErrorIsReturned(t *testing.T) {
	st := &fakeStore{}
	p, err := New(Options{Store: st})
	require.NoError(t, err)

	err = p.Handle(context.Background(), "t", []byte(`{"sensors":[{"meas":"1"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidReading)
	assert.ErrorIs(t, err, reading.ErrInvalidDevice)
	assert.ErrorIs(t, err, reading.ErrInvalidSensor)
	assert.Empty(t, st.posts)
}

func TestHandle_DeviceFromTopic(t *testing.T) {
	st := &fakeStore{}
	p, err := New(Options{Store: st})
	require.NoError(t, err)

	payload := []byte(`{"sensors":[{"id":"1","meas":"5"}]}`)
	require.NoError(t, p.Handle(context.Background(), "sensorspace/reading/loft/12/tank", payload))

	require.Len(t, st.posts, 1)
	assert.Equal(t, uint32(12), st.posts[0].deviceID)
	assert.Equal(t, "tank", st.posts[0].name)
}

func TestHandle_PayloadDeviceWinsOverTopic(t *testing.T) {
	st := &fakeStore{}
	p, err := New(Options{Store: st})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), "sensorspace/reading/loft/12/tank", []byte(validJSON)))
	assert.Equal(t, uint32(7), st.posts[0].deviceID)
	assert.Equal(t, "boiler", st.posts[0].name)
}

func TestHandle_StoreErrorStillExports(t *testing.T) {
	storeErr := errors.New("down")
	st := &fakeStore{err: storeErr}
	ex := &fakeExporter{}
	p, err := New(Options{Store: st, Export: ex})
	require.NoError(t, err)

	err = p.Handle(context.Background(), "t", []byte(validJSON))
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, uint64(1), p.Stats().StoreErrs)
}

func TestHandle_NoStoreConfigured(t *testing.T) {
	ex := &fakeExporter{}
	p, err := New(Options{Export: ex})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), "t", []byte(validJSON)))
	assert.Equal(t, []int64{0}, ex.ids)
}

func TestHandler_AdaptsToMessageHandler(t *testing.T) {
	st := &fakeStore{status: store.StatusReconnected}
	p, err := New(Options{Store: st})
	require.NoError(t, err)

	h := p.Handler(context.Background())
	require.NoError(t, h("t", []byte(validJSON)))
	assert.Len(t, st.posts, 1)
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.ErrorIs(t, err, codec.ErrUnknownFormat)
}

func TestHandle_Concurrent(t *testing.T) {
	st := &fakeStore{}
	p, err := New(Options{Store: st})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _i := 0; _i < 16; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Handle(context.Background(), "t", []byte(validJSON)))
		}()
	}
	wg.Wait()

	assert.Len(t, st.posts, 16)
	assert.Equal(t, uint64(16), p.Stats().Stored)
}

func TestHandle_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	p, err := New(Options{Store: &fakeStore{status: store.StatusReconnected}, Export: &fakeExporter{}, Metrics: m})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), "t", []byte(validJSON)))
	require.Error(t, p.Handle(context.Background(), "t", []byte(`{"sensors":[]}`)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "sensorspace_readings_received_total 2\n")
	assert.Contains(t, body, "sensorspace_readings_rejected_total 1\n")
	assert.Contains(t, body, "sensorspace_store_reconnects_total 1\n")
	assert.Contains(t, body, "sensorspace_export_updates_total 2\n")
}
