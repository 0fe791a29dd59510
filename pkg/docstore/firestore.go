package docstore

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the production backend. Documents are encoded with the
// `firestore` struct tags of the domain types.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore opens the Firestore client of a Firebase app so
// credentials are shared with the auth and messaging clients
func NewFirestoreStore(ctx context.Context, app *firebase.App) (*FirestoreStore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firestore client: %w", err)
	}

	log.Println("[Firestore] Client initialized successfully")
	return &FirestoreStore{client: client}, nil
}

// NewFirestoreStoreFromClient wraps an existing client
func NewFirestoreStoreFromClient(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (f *FirestoreStore) NewID(collection string) string {
	return f.client.Collection(collection).NewDoc().ID
}

func (f *FirestoreStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateFirestoreError(err)
	}
	return &firestoreSnapshot{snap: snap}, nil
}

func (f *FirestoreStore) Set(ctx context.Context, collection, id string, v interface{}) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, v)
	return translateFirestoreError(err)
}

func (f *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, toUpdates(fields))
	return translateFirestoreError(err)
}

func (f *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	return translateFirestoreError(err)
}

func (f *FirestoreStore) ArrayUnion(ctx context.Context, collection, id, field string, values ...interface{}) error {
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, []firestore.Update{
		{Path: field, Value: firestore.ArrayUnion(values...)},
	})
	return translateFirestoreError(err)
}

func (f *FirestoreStore) List(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	query := f.client.Collection(collection).Query
	for _, flt := range filters {
		query = query.Where(flt.Field, "==", flt.Value)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var snaps []Snapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, translateFirestoreError(err)
		}
		snaps = append(snaps, &firestoreSnapshot{snap: doc})
	}
	return snaps, nil
}

func (f *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{client: f.client, tx: tx})
	})
	return translateFirestoreError(err)
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

type firestoreSnapshot struct {
	snap *firestore.DocumentSnapshot
}

func (s *firestoreSnapshot) ID() string { return s.snap.Ref.ID }

func (s *firestoreSnapshot) DataTo(v interface{}) error { return s.snap.DataTo(v) }

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (Snapshot, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		return nil, translateFirestoreError(err)
	}
	return &firestoreSnapshot{snap: snap}, nil
}

func (t *firestoreTx) Set(collection, id string, v interface{}) error {
	return t.tx.Set(t.client.Collection(collection).Doc(id), v)
}

func (t *firestoreTx) Update(collection, id string, fields map[string]interface{}) error {
	return t.tx.Update(t.client.Collection(collection).Doc(id), toUpdates(fields))
}

func (t *firestoreTx) Delete(collection, id string) error {
	return t.tx.Delete(t.client.Collection(collection).Doc(id))
}

func toUpdates(fields map[string]interface{}) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	return updates
}

func translateFirestoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.Aborted:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
