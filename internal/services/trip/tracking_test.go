package trip

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripmate-core/internal/models"
	"tripmate-core/internal/services/auth"
)

func startTripForTracking(t *testing.T, backend *stubBackend, provider *stubProvider) *Service {
	t.Helper()
	svc, _ := newTestService(backend, provider)
	if _, err := svc.CreateTrip(context.Background(), "Tracked Trip", nil, "", nil); err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return svc
}

func TestStartTrackingWithoutTripIsNoop(t *testing.T) {
	provider := &stubProvider{permissionErr: errors.New("should not be asked")}
	svc, _ := newTestService(newStubBackend(), provider)

	if err := svc.StartLocationTracking(context.Background()); err != nil {
		t.Fatalf("expected no-op without a trip, got %v", err)
	}
	if provider.watchStarts != 0 {
		t.Fatal("expected no watch acquired")
	}
}

func TestStartTrackingPermissionDenied(t *testing.T) {
	provider := &stubProvider{permissionErr: errors.New("denied by user")}
	backend := newStubBackend()
	svc := startTripForTracking(t, backend, provider)

	err := svc.StartLocationTracking(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	state := svc.Snapshot()
	if state.IsTrackingActive {
		t.Fatal("expected tracking inactive after denial")
	}
	if state.TripError != ErrPermissionDenied.Error() {
		t.Fatalf("expected permission error in state, got %q", state.TripError)
	}
	if provider.watchStarts != 0 {
		t.Fatal("expected no watch acquired after denial")
	}
}

func TestStartStopTracking(t *testing.T) {
	provider := &stubProvider{}
	backend := newStubBackend()
	svc := startTripForTracking(t, backend, provider)

	if err := svc.StartLocationTracking(context.Background()); err != nil {
		t.Fatalf("start tracking: %v", err)
	}
	if !svc.Snapshot().IsTrackingActive {
		t.Fatal("expected tracking active")
	}
	if provider.aliveWatches() != 1 {
		t.Fatalf("expected 1 live watch, got %d", provider.aliveWatches())
	}

	if err := svc.StopLocationTracking(); err != nil {
		t.Fatalf("stop tracking: %v", err)
	}
	if svc.Snapshot().IsTrackingActive {
		t.Fatal("expected tracking inactive")
	}
	if provider.aliveWatches() != 0 {
		t.Fatalf("expected watch released, got %d live", provider.aliveWatches())
	}

	// Stop is idempotent
	if err := svc.StopLocationTracking(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if provider.watchStops != 1 {
		t.Fatalf("expected exactly 1 release, got %d", provider.watchStops)
	}
}

func TestModeSwitchHoldsExactlyOneResource(t *testing.T) {
	provider := &stubProvider{}
	backend := newStubBackend()
	svc := startTripForTracking(t, backend, provider)

	if err := svc.StartLocationTracking(context.Background()); err != nil {
		t.Fatalf("start tracking: %v", err)
	}

	// Switching modes while tracking restarts under the new strategy
	if err := svc.SetLocationMode(context.Background(), models.ModeHigh); err != nil {
		t.Fatalf("switch to high: %v", err)
	}
	if provider.watchStarts != 2 {
		t.Fatalf("expected restart to acquire a second watch, got %d starts", provider.watchStarts)
	}
	if provider.aliveWatches() != 1 {
		t.Fatalf("expected exactly 1 live watch after switch, got %d", provider.aliveWatches())
	}
	if !svc.Snapshot().IsTrackingActive {
		t.Fatal("expected tracking to survive the switch")
	}

	// Switching to smart releases the watch entirely
	svc.smartPollInterval = time.Hour
	if err := svc.SetLocationMode(context.Background(), models.ModeSmart); err != nil {
		t.Fatalf("switch to smart: %v", err)
	}
	if provider.aliveWatches() != 0 {
		t.Fatalf("expected watch released in smart mode, got %d live", provider.aliveWatches())
	}
	if provider.fixCalls == 0 {
		t.Fatal("expected immediate sample on smart start")
	}

	if err := svc.StopLocationTracking(); err != nil {
		t.Fatalf("stop tracking: %v", err)
	}
}

func TestSmartModePollsOnTimer(t *testing.T) {
	provider := &stubProvider{fix: models.Coordinate{Latitude: 13.7563, Longitude: 100.5018}}
	backend := newStubBackend()
	svc := startTripForTracking(t, backend, provider)
	svc.smartPollInterval = 10 * time.Millisecond

	if err := svc.SetLocationMode(context.Background(), models.ModeSmart); err != nil {
		t.Fatalf("set smart mode: %v", err)
	}
	if err := svc.StartLocationTracking(context.Background()); err != nil {
		t.Fatalf("start tracking: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		provider.mu.Lock()
		calls := provider.fixCalls
		provider.mu.Unlock()
		if calls >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected repeated polls, got %d", calls)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := svc.StopLocationTracking(); err != nil {
		t.Fatalf("stop tracking: %v", err)
	}

	state := svc.Snapshot()
	if state.CurrentUserLocation == nil || state.CurrentUserLocation.Latitude != 13.7563 {
		t.Fatalf("expected polled fix in state, got %+v", state.CurrentUserLocation)
	}
}

func TestWatchSamplePushedToBackend(t *testing.T) {
	provider := &stubProvider{}
	backend := newStubBackend()
	svc := startTripForTracking(t, backend, provider)

	if err := svc.StartLocationTracking(context.Background()); err != nil {
		t.Fatalf("start tracking: %v", err)
	}

	provider.watchFn(models.Coordinate{Latitude: 7.8804, Longitude: 98.3923})

	state := svc.Snapshot()
	if state.CurrentUserLocation == nil || state.CurrentUserLocation.Longitude != 98.3923 {
		t.Fatalf("expected local fix applied, got %+v", state.CurrentUserLocation)
	}

	backend.mu.Lock()
	last := backend.memberWrites[len(backend.memberWrites)-1]
	backend.mu.Unlock()
	if last.memberID != "user-1" {
		t.Fatalf("expected write for the signed-in member, got %q", last.memberID)
	}
	loc, ok := last.fields["location"].(map[string]interface{})
	if !ok || loc["latitude"] != 7.8804 {
		t.Fatalf("expected location in write, got %v", last.fields["location"])
	}
	if last.fields["lastUpdatedAt"] != int64(1700000000000) {
		t.Fatalf("expected stamped timestamp, got %v", last.fields["lastUpdatedAt"])
	}
}

func TestSampleWriteFailureKeepsTrackingAlive(t *testing.T) {
	provider := &stubProvider{}
	backend := newStubBackend()
	svc := startTripForTracking(t, backend, provider)

	if err := svc.StartLocationTracking(context.Background()); err != nil {
		t.Fatalf("start tracking: %v", err)
	}

	backend.mu.Lock()
	backend.mergeMemberErr = errors.New("backend down")
	backend.mu.Unlock()

	provider.watchFn(models.Coordinate{Latitude: 1, Longitude: 2})

	state := svc.Snapshot()
	if state.TripError == "" {
		t.Fatal("expected write failure surfaced in state")
	}
	if !state.IsTrackingActive {
		t.Fatal("expected tracking to continue through a failed push")
	}
	if provider.aliveWatches() != 1 {
		t.Fatal("expected the watch to stay live")
	}
}

// leavingProvider tears the trip down from inside the permission request,
// modelling a sign-out racing a tracking start
type leavingProvider struct {
	stubProvider
	svc *Service
}

func (p *leavingProvider) RequestPermission(ctx context.Context) error {
	return p.svc.LeaveTrip()
}

func TestLeaveDuringPermissionRequestAbortsStart(t *testing.T) {
	backend := newStubBackend()
	session := &stubSession{user: &auth.User{ID: "user-1", Name: "Alice", Email: "alice@example.com"}}
	provider := &leavingProvider{}
	svc := NewService(backend, session, provider, nil)
	provider.svc = svc

	if _, err := svc.CreateTrip(context.Background(), "Tracked Trip", nil, "", nil); err != nil {
		t.Fatalf("create trip: %v", err)
	}

	if err := svc.StartLocationTracking(context.Background()); err != nil {
		t.Fatalf("start tracking: %v", err)
	}

	state := svc.Snapshot()
	if state.IsTrackingActive {
		t.Fatal("expected tracking not resurrected after leave")
	}
	if state.CurrentTripCode != "" {
		t.Fatalf("expected baseline trip state, got %q", state.CurrentTripCode)
	}
	if provider.aliveWatches() != 0 {
		t.Fatalf("expected no live acquisition resource, got %d", provider.aliveWatches())
	}
}

func TestStaleSampleAfterLeaveIsDiscarded(t *testing.T) {
	provider := &stubProvider{}
	backend := newStubBackend()
	svc := startTripForTracking(t, backend, provider)

	if err := svc.StartLocationTracking(context.Background()); err != nil {
		t.Fatalf("start tracking: %v", err)
	}
	push := provider.watchFn

	if err := svc.LeaveTrip(); err != nil {
		t.Fatalf("leave trip: %v", err)
	}
	backend.mu.Lock()
	writesBefore := len(backend.memberWrites)
	backend.mu.Unlock()

	// A sample still in flight when the trip was torn down
	push(models.Coordinate{Latitude: 9, Longitude: 9})

	state := svc.Snapshot()
	if state.CurrentUserLocation != nil {
		t.Fatalf("stale sample resurrected state: %+v", state.CurrentUserLocation)
	}
	backend.mu.Lock()
	writesAfter := len(backend.memberWrites)
	backend.mu.Unlock()
	if writesAfter != writesBefore {
		t.Fatal("stale sample reached the backend")
	}
	if provider.aliveWatches() != 0 {
		t.Fatal("expected leave to release the watch")
	}
}
