package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lixenwraith/monosynth/status"
	"github.com/lixenwraith/monosynth/synth"
)

type fakeTransport struct {
	playing bool
	err     error
	calls   int
}

func (f *fakeTransport) Playing() bool { return f.playing }

func (f *fakeTransport) SetPlaying(on bool) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.playing = on
	return nil
}

func (f *fakeTransport) DriverName() string {
	if f.playing {
		return "headless"
	}
	return ""
}

func newTestServer(t *testing.T, transport Transport) (*Server, *synth.Bridge, *httptest.Server) {
	t.Helper()
	bridge := synth.NewBridge(synth.DefaultParams(), 0)
	engine := synth.NewEngine(bridge, 1, synth.EnvelopePerSample)
	api := New(engine, transport)
	ts := httptest.NewServer(api.Echo())
	t.Cleanup(ts.Close)
	return api, bridge, ts
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, State) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var st State
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			t.Fatalf("decode state: %v", err)
		}
	}
	return resp, st
}

func TestHealthAndState(t *testing.T) {
	_, bridge, ts := newTestServer(t, nil)
	bridge.SetFrequency(440)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Clients != 0 {
		t.Fatalf("unexpected health payload: %#v", health)
	}

	resp, st := doJSON(t, http.MethodGet, ts.URL+"/api/state", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /api/state, got %d", resp.StatusCode)
	}
	if st.Frequency != 440 || st.Envelope != "idle" || st.Mode != "sample" {
		t.Fatalf("unexpected state payload: %#v", st)
	}
	if st.Params != synth.DefaultParams() {
		t.Fatalf("got params %+v, want defaults", st.Params)
	}
	if st.Note != nil || st.Playing {
		t.Fatalf("Expected no note and stopped transport, got %#v", st)
	}
}

func TestPutParamsPartial(t *testing.T) {
	_, bridge, ts := newTestServer(t, nil)

	resp, st := doJSON(t, http.MethodPut, ts.URL+"/api/params",
		`{"waveform":"saw","voices":4,"detune":250,"sustain":0.5,"frequency":220}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := bridge.Params()
	if p.Unison.Waveform != synth.WaveSawtooth || p.Unison.Voices != 4 {
		t.Errorf("got unison %+v", p.Unison)
	}
	if p.Unison.Detune != 100 {
		t.Errorf("got detune %f, want clamped 100", p.Unison.Detune)
	}
	if p.Envelope.Sustain != 0.5 || p.Envelope.Attack != synth.DefaultEnvelopeParams().Attack {
		t.Errorf("got envelope %+v", p.Envelope)
	}
	if bridge.Frequency() != 220 || st.Frequency != 220 {
		t.Errorf("got frequency %f / %f, want 220", bridge.Frequency(), st.Frequency)
	}
	if st.Params != p {
		t.Errorf("Expected response to reflect the new params, got %+v", st.Params)
	}
}

func TestPutParamsInvalid(t *testing.T) {
	_, bridge, ts := newTestServer(t, nil)
	before := bridge.Version()

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/params", `{"waveform":"noise"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got %d, want 400", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/api/params", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got %d, want 400", resp.StatusCode)
	}
	if bridge.Version() != before {
		t.Error("Expected rejected patches to leave params untouched")
	}
}

func TestPostNote(t *testing.T) {
	_, bridge, ts := newTestServer(t, nil)

	resp, st := doJSON(t, http.MethodPost, ts.URL+"/api/note", `{"note":60}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if st.Note == nil || st.Note.Number != 60 || st.Note.Name != "C4" {
		t.Fatalf("got note %#v, want C4", st.Note)
	}
	if math.Abs(bridge.Frequency()-261.6256) > 0.01 {
		t.Errorf("got frequency %f, want ~261.63", bridge.Frequency())
	}
	if ev, ok := bridge.PollEvent(); !ok || ev.Kind != synth.NoteOnEvent || ev.Note != synth.NoteToken(60) {
		t.Errorf("got event %+v %v, want note-on 60", ev, ok)
	}

	resp, st = doJSON(t, http.MethodPost, ts.URL+"/api/note", `{"note":60,"velocity":0}`)
	if resp.StatusCode != http.StatusOK || st.Note != nil {
		t.Fatalf("Expected velocity 0 to release, got %d %#v", resp.StatusCode, st.Note)
	}

	for _, body := range []string{`{"note":200}`, `{"velocity":10}`, `{"note":60,"velocity":300}`} {
		if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/note", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestPostGateAndPanic(t *testing.T) {
	_, bridge, ts := newTestServer(t, nil)
	bridge.SetFrequency(330)

	resp, st := doJSON(t, http.MethodPost, ts.URL+"/api/gate", `{"open":true}`)
	if resp.StatusCode != http.StatusOK || !st.Gate {
		t.Fatalf("Expected gate open, got %d %#v", resp.StatusCode, st)
	}

	resp, st = doJSON(t, http.MethodPost, ts.URL+"/api/panic", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if st.Gate || st.Frequency != 0 || bridge.GateOpen() {
		t.Errorf("Expected panic to close gate and silence, got %#v", st)
	}
}

func TestPostTransport(t *testing.T) {
	transport := &fakeTransport{}
	_, _, ts := newTestServer(t, transport)

	resp, st := doJSON(t, http.MethodPost, ts.URL+"/api/transport", `{"playing":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !st.Playing || st.Driver != "headless" {
		t.Errorf("got playing %v driver %q", st.Playing, st.Driver)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/transport", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got %d, want 400 for missing playing", resp.StatusCode)
	}

	transport.err = errors.New("device busy")
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/transport", `{"playing":false}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("got %d, want 500", resp.StatusCode)
	}
}

func TestTransportUnavailable(t *testing.T) {
	_, _, ts := newTestServer(t, nil)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/transport", `{"playing":true}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got %d, want 503", resp.StatusCode)
	}
}

func TestServiceLifecycle(t *testing.T) {
	bridge := synth.NewBridge(synth.DefaultParams(), 0)
	api := New(synth.NewEngine(bridge, 1, synth.EnvelopePerSample), nil)
	svc := NewService(api, "127.0.0.1:0", "audio")

	if got := svc.Dependencies(); len(got) != 1 || got[0] != "audio" {
		t.Errorf("got deps %v", got)
	}
	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + svc.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("got %d, want 200", resp.StatusCode)
	}

	if err := svc.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestServiceBadAddr(t *testing.T) {
	bridge := synth.NewBridge(synth.DefaultParams(), 0)
	api := New(synth.NewEngine(bridge, 1, synth.EnvelopePerSample), nil)
	if err := NewService(api, "256.0.0.1:bad").Start(); err == nil {
		t.Error("Expected listen error")
	}
}

// TestMetricsEndpoint verifies the registry snapshot is served
func TestMetricsEndpoint(t *testing.T) {
	bridge := synth.NewBridge(synth.DefaultParams(), 0)
	api := New(synth.NewEngine(bridge, 1, synth.EnvelopePerSample), nil)
	reg := status.NewRegistry()
	reg.Counter(status.KeyWatchdogTrips).Add(3)
	api.SetMetrics(reg)
	ts := httptest.NewServer(api.Echo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got[status.KeyWatchdogTrips] != float64(3) {
		t.Errorf("Expected 3 watchdog trips, got %v", got[status.KeyWatchdogTrips])
	}
	if _, ok := got[status.KeyRemoteClients]; !ok {
		t.Errorf("Expected %s in snapshot, got %v", status.KeyRemoteClients, got)
	}
}

// TestMetricsEndpointUnwired verifies an empty object without a registry
func TestMetricsEndpointUnwired(t *testing.T) {
	_, _, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty metrics, got %v", got)
	}
}
