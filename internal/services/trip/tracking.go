package trip

import (
	"context"
	"fmt"
	"log"
	"time"

	"tripmate-core/internal/models"
	"tripmate-core/internal/services/location"
)

// Acquisition profiles per mode. Smart mode polls on a fixed timer instead of
// holding a continuous watch; the literal polling period is the contract.
const (
	highInterval     = 2 * time.Second
	highDistanceM    = 3
	balancedInterval = 12 * time.Second
	balancedDistM    = 30
)

// StartLocationTracking acquires the location resource for the current mode
// and pushes every sample into the caller's member record. Any previously held
// resource is released first, so exactly one watch or poll timer is ever live.
func (s *Service) StartLocationTracking(ctx context.Context) error {
	user := s.session.CurrentUser()

	s.mu.Lock()
	code := s.state.CurrentTripCode
	mode := s.state.LocationMode
	gen := s.generation
	s.mu.Unlock()

	if user == nil || code == "" {
		return nil
	}

	if err := s.provider.RequestPermission(ctx); err != nil {
		s.setStateIfGen(gen, func(st *State) {
			st.TripError = ErrPermissionDenied.Error()
			st.IsTrackingActive = false
		})
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	s.trackMu.Lock()
	defer s.trackMu.Unlock()

	// The permission request is a suspension point; a LeaveTrip that landed
	// during it must not be undone by acquiring a fresh resource now
	s.mu.Lock()
	stale := gen != s.generation
	s.mu.Unlock()
	if stale {
		return nil
	}

	s.releaseTrackingResources()

	push := func(fix models.Coordinate) {
		s.pushLocation(gen, code, user.ID, fix)
	}

	var err error
	if mode == models.ModeSmart {
		err = s.startSmartPolling(ctx, gen, push)
	} else {
		err = s.startContinuousWatch(mode, push)
	}

	if err != nil {
		s.setStateIfGen(gen, func(st *State) {
			st.TripError = err.Error()
			st.IsTrackingActive = false
		})
		return err
	}

	s.setStateIfGen(gen, func(st *State) {
		st.IsTrackingActive = true
		st.TripError = ""
	})
	log.Printf("📍 Location tracking started (%s)", mode)
	return nil
}

// StopLocationTracking releases whichever acquisition resource is held
func (s *Service) StopLocationTracking() error {
	s.trackMu.Lock()
	s.releaseTrackingResources()
	s.trackMu.Unlock()

	s.setState(func(st *State) { st.IsTrackingActive = false })
	return nil
}

// startContinuousWatch runs the high or balanced strategy on a provider watch
func (s *Service) startContinuousWatch(mode models.LocationMode, push func(models.Coordinate)) error {
	opts := location.WatchOptions{
		Accuracy:          location.AccuracyBalanced,
		MinInterval:       balancedInterval,
		MinDistanceMeters: balancedDistM,
	}
	if mode == models.ModeHigh {
		opts = location.WatchOptions{
			Accuracy:          location.AccuracyHighest,
			MinInterval:       highInterval,
			MinDistanceMeters: highDistanceM,
		}
	}

	stop, err := s.provider.Watch(context.Background(), opts, push)
	if err != nil {
		return fmt.Errorf("failed to start position watch: %w", err)
	}

	s.watchStop = stop
	return nil
}

// startSmartPolling takes an immediate sample, then pulls a fresh one on a
// fixed timer to reduce continuous GPS draw
func (s *Service) startSmartPolling(ctx context.Context, gen int, push func(models.Coordinate)) error {
	first, err := s.provider.CurrentPosition(ctx, location.AccuracyBalanced)
	if err != nil {
		return fmt.Errorf("failed to fetch position: %w", err)
	}
	push(first)

	pollCtx, cancel := context.WithCancel(context.Background())
	s.smartCancel = cancel

	go func() {
		ticker := time.NewTicker(s.smartPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				fix, err := s.provider.CurrentPosition(pollCtx, location.AccuracyBalanced)
				if err != nil {
					s.setStateIfGen(gen, func(st *State) { st.TripError = err.Error() })
					continue
				}
				push(fix)
			}
		}
	}()

	return nil
}

// releaseTrackingResources must be called with trackMu held. Release is
// idempotent; after it returns no watch and no poll timer is live.
func (s *Service) releaseTrackingResources() {
	if s.watchStop != nil {
		s.watchStop()
		s.watchStop = nil
	}
	if s.smartCancel != nil {
		s.smartCancel()
		s.smartCancel = nil
	}
}

// pushLocation applies one sample locally and writes it through to the
// member record. Write failures set the error slice but never stop the loop;
// samples arriving after teardown are discarded.
func (s *Service) pushLocation(gen int, code, memberID string, fix models.Coordinate) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.state.CurrentUserLocation = &fix
	s.state.TripError = ""
	mode := s.state.LocationMode
	s.mu.Unlock()
	s.notify()

	err := s.backend.MergeMember(context.Background(), code, memberID, map[string]interface{}{
		"location":      fix.Map(),
		"locationMode":  string(mode),
		"lastUpdatedAt": s.now(),
	})
	if err != nil {
		s.setStateIfGen(gen, func(st *State) {
			st.TripError = fmt.Sprintf("failed to push location: %v", err)
		})
		return
	}

	if s.journal != nil {
		s.journal.RecordSample(code, memberID, fix.Latitude, fix.Longitude, string(mode))
	}
}

// setStateIfGen mutates state only when the generation still matches,
// protecting torn-down state from stragglers
func (s *Service) setStateIfGen(gen int, mutate func(*State)) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	mutate(&s.state)
	s.mu.Unlock()
	s.notify()
}
