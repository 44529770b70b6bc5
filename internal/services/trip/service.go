package trip

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"tripmate-core/internal/models"
	"tripmate-core/internal/services/auth"
	"tripmate-core/internal/services/location"
)

// Session exposes the signed-in identity to the sync core
type Session interface {
	CurrentUser() *auth.User
}

// Service is the single source of truth for "the trip I am currently in".
// One active trip (and one tracking resource) exists per process; every
// create/join tears down the previous subscriptions before acquiring new ones.
//
// The mutex serializes all state mutation the way the original event loop
// serialized callbacks; backend and provider calls happen outside it.
type Service struct {
	backend  Backend
	session  Session
	provider location.Provider
	journal  Journal // optional

	mu        sync.Mutex
	state     State
	observers map[int]func(State)
	nextObs   int

	// generation stamps subscriptions and tracking resources; LeaveTrip bumps
	// it so late callbacks from torn-down resources are discarded
	generation int

	tripStop    func()
	membersStop func()

	// tracking resources: at most one of watchStop / smartCancel is non-nil
	trackMu     sync.Mutex
	watchStop   func()
	smartCancel context.CancelFunc

	smartPollInterval time.Duration
	battery           func() int
	now               func() int64 // epoch millis
}

// NewService wires the sync core. journal may be nil.
func NewService(backend Backend, session Session, provider location.Provider, journal Journal) *Service {
	return &Service{
		backend:           backend,
		session:           session,
		provider:          provider,
		journal:           journal,
		state:             baseState(),
		observers:         make(map[int]func(State)),
		smartPollInterval: 25 * time.Second,
		battery:           func() int { return models.DefaultBatteryLevel },
		now:               func() int64 { return time.Now().UnixMilli() },
	}
}

// Snapshot returns the current merged state
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers an observer notified with a fresh snapshot after every
// state change. The returned handle unsubscribes.
func (s *Service) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// ClearTripError dismisses the trip error slice
func (s *Service) ClearTripError() {
	s.setState(func(st *State) { st.TripError = "" })
}

// CreateTrip allocates a unique trip code, writes the trip record and the
// caller's member record, subscribes to the new trip and returns the code.
func (s *Service) CreateTrip(ctx context.Context, name string, destination *models.Coordinate, destinationAddress string, routePoints []models.Coordinate) (string, error) {
	user := s.session.CurrentUser()
	if user == nil {
		return "", ErrUnauthenticated
	}

	s.setState(func(st *State) {
		st.IsTripLoading = true
		st.TripError = ""
	})

	code, err := s.doCreateTrip(ctx, user, name, destination, destinationAddress, routePoints)
	if err != nil {
		s.setState(func(st *State) {
			st.IsTripLoading = false
			st.TripError = err.Error()
		})
		return "", err
	}

	return code, nil
}

func (s *Service) doCreateTrip(ctx context.Context, user *auth.User, name string, destination *models.Coordinate, destinationAddress string, routePoints []models.Coordinate) (string, error) {
	code, err := uniqueTripCode(ctx, s.backend)
	if err != nil {
		return "", err
	}

	cleanName := strings.TrimSpace(name)

	tripDoc := map[string]interface{}{
		"tripCode":           code,
		"tripName":           cleanName,
		"destinationAddress": destinationAddress,
		"routePoints":        coordinateMaps(routePoints),
		"ownerId":            user.ID,
		"isSOSActive":        false,
	}
	if destination != nil {
		tripDoc["destination"] = destination.Map()
	}

	if err := s.backend.CreateTrip(ctx, code, tripDoc); err != nil {
		return "", fmt.Errorf("failed to create trip: %w", err)
	}

	if err := s.backend.MergeMember(ctx, code, user.ID, s.memberDoc(user)); err != nil {
		return "", fmt.Errorf("failed to register member: %w", err)
	}

	gen, err := s.subscribeTripData(code)
	if err != nil {
		return "", err
	}

	// Optimistic local set; the first subscription callback reconciles it.
	// Skipped when the trip was already torn down mid-subscribe.
	s.setStateIfGen(gen, func(st *State) {
		st.CurrentTripCode = code
		st.TripName = cleanName
		st.Destination = destination
		st.DestinationAddress = destinationAddress
		st.RoutePoints = append([]models.Coordinate(nil), routePoints...)
		st.IsSOSActive = false
		st.IsTripLoading = false
		st.TripError = ""
	})

	s.recordEvent(code, "create", cleanName)
	log.Printf("✅ Trip created: %s (%s)", cleanName, code)
	return code, nil
}

// JoinTrip normalizes the code, verifies the trip exists, upserts the
// caller's member record and subscribes.
func (s *Service) JoinTrip(ctx context.Context, code string) error {
	user := s.session.CurrentUser()
	if user == nil {
		return ErrUnauthenticated
	}

	s.setState(func(st *State) {
		st.IsTripLoading = true
		st.TripError = ""
	})

	if err := s.doJoinTrip(ctx, user, code); err != nil {
		s.setState(func(st *State) {
			st.IsTripLoading = false
			st.TripError = err.Error()
		})
		return err
	}

	return nil
}

func (s *Service) doJoinTrip(ctx context.Context, user *auth.User, code string) error {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	exists, err := s.backend.TripExists(ctx, normalized)
	if err != nil {
		return fmt.Errorf("failed to look up trip: %w", err)
	}
	if !exists {
		return ErrTripNotFound
	}

	if err := s.backend.MergeMember(ctx, normalized, user.ID, s.memberDoc(user)); err != nil {
		return fmt.Errorf("failed to register member: %w", err)
	}

	gen, err := s.subscribeTripData(normalized)
	if err != nil {
		return err
	}

	s.setStateIfGen(gen, func(st *State) {
		st.CurrentTripCode = normalized
		st.IsTripLoading = false
		st.TripError = ""
	})

	s.recordEvent(normalized, "join", user.ID)
	log.Printf("✅ Joined trip: %s", normalized)
	return nil
}

// LeaveTrip tears down both live subscriptions and all tracking resources and
// resets local state to its empty baseline. Idempotent; safe with no active
// trip, and late callbacks from in-flight operations are discarded.
func (s *Service) LeaveTrip() error {
	// The generation must move before the tracking release: an in-flight start
	// that captured the old one then aborts instead of re-acquiring, and any
	// resource it stored first is released right here
	s.mu.Lock()
	code := s.state.CurrentTripCode
	s.teardownSubscriptionsLocked()
	s.generation++
	s.state = baseState()
	s.mu.Unlock()

	s.trackMu.Lock()
	s.releaseTrackingResources()
	s.trackMu.Unlock()
	s.notify()

	if code != "" {
		s.recordEvent(code, "leave", "")
		log.Printf("🔴 Left trip: %s", code)
	}
	return nil
}

// TriggerSOS optimistically toggles the SOS flag and writes it through.
// A write failure surfaces an error but the optimistic flag stays set;
// the next authoritative snapshot is the reconciliation point.
func (s *Service) TriggerSOS(ctx context.Context, active bool) error {
	s.mu.Lock()
	code := s.state.CurrentTripCode
	s.mu.Unlock()
	if code == "" {
		return nil
	}

	s.setState(func(st *State) { st.IsSOSActive = active })

	err := s.backend.MergeTrip(ctx, code, map[string]interface{}{
		"isSOSActive": active,
	})
	if err != nil {
		wrapped := fmt.Errorf("failed to update SOS flag: %w", err)
		s.setState(func(st *State) { st.TripError = wrapped.Error() })
		return wrapped
	}

	s.recordEvent(code, "sos", fmt.Sprintf("%t", active))
	return nil
}

// SetLocationMode updates the local mode immediately, writes the member's mode
// through when a trip and identity are active, and restarts tracking under the
// new strategy when tracking is live (full stop-then-start).
func (s *Service) SetLocationMode(ctx context.Context, mode models.LocationMode) error {
	s.mu.Lock()
	s.state.LocationMode = mode
	code := s.state.CurrentTripCode
	tracking := s.state.IsTrackingActive
	s.mu.Unlock()
	s.notify()

	user := s.session.CurrentUser()
	if user != nil && code != "" {
		err := s.backend.MergeMember(ctx, code, user.ID, map[string]interface{}{
			"locationMode": string(mode),
		})
		if err != nil {
			wrapped := fmt.Errorf("failed to update location mode: %w", err)
			s.setState(func(st *State) { st.TripError = wrapped.Error() })
			return wrapped
		}
	}

	if tracking {
		return s.StartLocationTracking(ctx)
	}
	return nil
}

// subscribeTripData replaces any prior subscription pair with a fresh one for
// the given code and returns the generation stamped on it. If the trip is torn
// down while the subscribe is in flight, the new streams are stopped
// immediately and their callbacks discarded; the stale generation lets the
// caller's follow-up writes discard themselves the same way.
func (s *Service) subscribeTripData(code string) (int, error) {
	s.mu.Lock()
	s.teardownSubscriptionsLocked()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	tripStop, err := s.backend.SubscribeTrip(code, func(data map[string]interface{}, exists bool) {
		s.applyTripSnapshot(gen, code, data, exists)
	})
	if err != nil {
		return gen, fmt.Errorf("failed to subscribe to trip: %w", err)
	}

	membersStop, err := s.backend.SubscribeMembers(code, func(docs []MemberDoc) {
		s.applyMembersSnapshot(gen, docs)
	})
	if err != nil {
		tripStop()
		return gen, fmt.Errorf("failed to subscribe to members: %w", err)
	}

	s.mu.Lock()
	if gen != s.generation {
		// Torn down while subscribing; do not resurrect
		s.mu.Unlock()
		tripStop()
		membersStop()
		return gen, nil
	}
	s.tripStop = tripStop
	s.membersStop = membersStop
	s.mu.Unlock()
	return gen, nil
}

// applyTripSnapshot merges one trip-document callback into local state
func (s *Service) applyTripSnapshot(gen int, code string, data map[string]interface{}, exists bool) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}

	if !exists {
		s.state.TripError = ErrTripNotFound.Error()
		s.mu.Unlock()
		s.notify()
		return
	}

	trip := models.TripFromDoc(code, data)
	s.state.CurrentTripCode = code
	s.state.TripName = trip.Name
	s.state.Destination = trip.Destination
	s.state.DestinationAddress = trip.DestinationAddress
	s.state.RoutePoints = trip.RoutePoints
	s.state.IsSOSActive = trip.IsSOSActive
	s.state.IsTripLoading = false
	s.state.TripError = ""
	s.mu.Unlock()
	s.notify()
}

// applyMembersSnapshot merges one member-collection callback into local state
func (s *Service) applyMembersSnapshot(gen int, docs []MemberDoc) {
	members := make([]models.Member, 0, len(docs))
	for _, doc := range docs {
		members = append(members, models.MemberFromDoc(doc.ID, doc.Data))
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.state.Members = members
	s.mu.Unlock()
	s.notify()
}

// teardownSubscriptionsLocked must be called with the mutex held
func (s *Service) teardownSubscriptionsLocked() {
	if s.tripStop != nil {
		s.tripStop()
		s.tripStop = nil
	}
	if s.membersStop != nil {
		s.membersStop()
		s.membersStop = nil
	}
}

// memberDoc builds the caller's member record for create/join upserts
func (s *Service) memberDoc(user *auth.User) map[string]interface{} {
	s.mu.Lock()
	mode := s.state.LocationMode
	s.mu.Unlock()

	return map[string]interface{}{
		"uid":          user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"batteryLevel": s.battery(),
		"locationMode": string(mode),
	}
}

// setState applies a mutation under the lock and notifies observers
func (s *Service) setState(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	s.mu.Unlock()
	s.notify()
}

// notify fans a fresh snapshot out to every observer
func (s *Service) notify() {
	s.mu.Lock()
	snapshot := s.state.clone()
	observers := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

func (s *Service) recordEvent(code, event, detail string) {
	if s.journal != nil {
		s.journal.RecordEvent(code, event, detail)
	}
}

func coordinateMaps(points []models.Coordinate) []interface{} {
	out := make([]interface{}, len(points))
	for i, p := range points {
		out[i] = p.Map()
	}
	return out
}
