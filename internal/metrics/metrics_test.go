package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSnapReflectsCounters(t *testing.T) {
	before := Snap()
	IncFramesRx()
	IncChecksumFailure()
	IncFingerDetection()
	after := Snap()

	if after.FramesRx != before.FramesRx+1 {
		t.Errorf("FramesRx = %d, want %d", after.FramesRx, before.FramesRx+1)
	}
	if after.ChecksumFails != before.ChecksumFails+1 {
		t.Errorf("ChecksumFails = %d, want %d", after.ChecksumFails, before.ChecksumFails+1)
	}
	if after.FingerDet != before.FingerDet+1 {
		t.Errorf("FingerDet = %d, want %d", after.FingerDet, before.FingerDet+1)
	}
}

func TestReadyEndpointReflectsReadinessFunc(t *testing.T) {
	SetReadinessFunc(func() bool { return false })
	SetConnected(false)

	mux := http.NewServeMux()
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		body := healthBody{Ready: IsReady(), Connected: localConnected.Load()}
		w.Header().Set("Content-Type", "application/json")
		if !body.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(body)
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var got healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Ready || got.Connected {
		t.Errorf("got %+v, want both false", got)
	}

	SetReadinessFunc(func() bool { return true })
	SetConnected(true)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
