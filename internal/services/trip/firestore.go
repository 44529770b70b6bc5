package trip

import (
	"context"
	"fmt"
	"log"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const tripsCollection = "trips"

// FirestoreBackend implements Backend against the hosted Firestore document
// store: trip records keyed by trip code, member records nested under them.
type FirestoreBackend struct {
	client *firestore.Client
}

// NewFirestoreBackend wraps an initialized Firestore client
func NewFirestoreBackend(client *firestore.Client) *FirestoreBackend {
	return &FirestoreBackend{client: client}
}

func (b *FirestoreBackend) tripDoc(code string) *firestore.DocumentRef {
	return b.client.Collection(tripsCollection).Doc(code)
}

func (b *FirestoreBackend) memberDoc(code, memberID string) *firestore.DocumentRef {
	return b.tripDoc(code).Collection("members").Doc(memberID)
}

// TripExists performs a point read on the trip record
func (b *FirestoreBackend) TripExists(ctx context.Context, code string) (bool, error) {
	snap, err := b.tripDoc(code).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read trip %s: %w", code, err)
	}
	return snap.Exists(), nil
}

// CreateTrip writes the full trip record with server-side timestamps
func (b *FirestoreBackend) CreateTrip(ctx context.Context, code string, doc map[string]interface{}) error {
	fields := withTimestamp(doc)
	fields["createdAt"] = firestore.ServerTimestamp

	if _, err := b.tripDoc(code).Set(ctx, fields); err != nil {
		return fmt.Errorf("failed to write trip %s: %w", code, err)
	}
	return nil
}

// MergeTrip partial-merges fields into the trip record
func (b *FirestoreBackend) MergeTrip(ctx context.Context, code string, fields map[string]interface{}) error {
	if _, err := b.tripDoc(code).Set(ctx, withTimestamp(fields), firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to merge trip %s: %w", code, err)
	}
	return nil
}

// MergeMember partial-merges fields into a member record
func (b *FirestoreBackend) MergeMember(ctx context.Context, code, memberID string, fields map[string]interface{}) error {
	if _, err := b.memberDoc(code, memberID).Set(ctx, withTimestamp(fields), firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to merge member %s/%s: %w", code, memberID, err)
	}
	return nil
}

// SubscribeTrip streams the trip document via a snapshot iterator
func (b *FirestoreBackend) SubscribeTrip(code string, fn func(data map[string]interface{}, exists bool)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	iter := b.tripDoc(code).Snapshots(ctx)

	go func() {
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("⚠️  Trip stream for %s ended: %v", code, err)
				}
				return
			}

			if !snap.Exists() {
				fn(nil, false)
				continue
			}
			fn(snap.Data(), true)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			iter.Stop()
		})
	}, nil
}

// SubscribeMembers streams the member collection via a query snapshot iterator
func (b *FirestoreBackend) SubscribeMembers(code string, fn func(docs []MemberDoc)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	iter := b.tripDoc(code).Collection("members").Snapshots(ctx)

	go func() {
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("⚠️  Member stream for %s ended: %v", code, err)
				}
				return
			}

			memberSnaps, err := snap.Documents.GetAll()
			if err != nil {
				log.Printf("⚠️  Failed to read member snapshot for %s: %v", code, err)
				continue
			}

			docs := make([]MemberDoc, 0, len(memberSnaps))
			for _, memberSnap := range memberSnaps {
				docs = append(docs, MemberDoc{ID: memberSnap.Ref.ID, Data: memberSnap.Data()})
			}
			fn(docs)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			iter.Stop()
		})
	}, nil
}

// withTimestamp copies the fields map and stamps the write time
func withTimestamp(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["updatedAt"] = firestore.ServerTimestamp
	return out
}
