/*
Package firestore provides a Cloud Firestore ClientStore.

PURPOSE:
  Stores each client as one document in the "clients" collection. Documents
  are written in their JSON shape (camelCase fields, decimals as strings,
  dates as "YYYY-MM-DD") so data moves freely between this store and SQLite.

PATCH MAPPING:
  Patch.Set    -> firestore.Update{Path: field, Value: v}
  Patch.Append -> firestore.Update{Path: field, Value: firestore.ArrayUnion(...)}

  ArrayUnion skips elements equal to one already stored. Payments and log
  entries carry their recording timestamp, so real appends never collide.

CREDENTIALS:
  A service-account file via option.WithCredentialsFile, or application
  default credentials when none is configured. FIRESTORE_EMULATOR_HOST is
  honored by the client library.

SEE ALSO:
  - billing/store.go: ClientStore interface
  - store/sqlite/sqlite.go: Default store
*/
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/warp/collections-engine/billing"
)

// DefaultCollection holds the client documents.
const DefaultCollection = "clients"

// Config selects the Firebase project.
type Config struct {
	ProjectID       string
	CredentialsFile string
	Collection      string
}

// Store implements billing.ClientStore on Firestore.
type Store struct {
	client     *firestore.Client
	collection string
}

// New connects to Firestore through the Firebase Admin SDK.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open firestore: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) docs() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// =============================================================================
// CLIENT STORE (billing.ClientStore interface)
// =============================================================================

func (s *Store) Create(ctx context.Context, c billing.Client) (billing.Client, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	data, err := toMap(c)
	if err != nil {
		return billing.Client{}, err
	}
	if _, err := s.docs().Doc(c.ID).Create(ctx, data); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return billing.Client{}, fmt.Errorf("client %s already exists", c.ID)
		}
		return billing.Client{}, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id string) (billing.Client, error) {
	snap, err := s.docs().Doc(id).Get(ctx)
	if err != nil {
		return billing.Client{}, notFound("get", id, err)
	}
	return fromSnapshot(snap)
}

func (s *Store) List(ctx context.Context) ([]billing.Client, error) {
	iter := s.docs().Documents(ctx)
	defer iter.Stop()

	clients := []billing.Client{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list clients: %w", err)
		}
		c, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	billing.SortByName(clients)
	return clients, nil
}

// Save replaces the document. The document must already exist.
func (s *Store) Save(ctx context.Context, c billing.Client) error {
	data, err := toMap(c)
	if err != nil {
		return err
	}
	ref := s.docs().Doc(c.ID)
	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, data)
	})
	if err != nil {
		return notFound("save", c.ID, err)
	}
	return nil
}

// ApplyPatch issues one Update naming only the patched fields.
func (s *Store) ApplyPatch(ctx context.Context, id string, p billing.Patch) error {
	updates, err := Updates(p)
	if err != nil {
		return fmt.Errorf("patch client %s: %w", id, err)
	}
	if len(updates) == 0 {
		_, err := s.docs().Doc(id).Get(ctx)
		return notFound("patch", id, err)
	}
	if _, err := s.docs().Doc(id).Update(ctx, updates); err != nil {
		return notFound("patch", id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.docs().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return notFound("delete", id, err)
	}
	return nil
}

// Updates converts a patch to Firestore field updates, sets first.
func Updates(p billing.Patch) ([]firestore.Update, error) {
	var updates []firestore.Update
	for _, field := range p.Fields() {
		if v, ok := p.Set[field]; ok {
			value, err := plain(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", field, err)
			}
			updates = append(updates, firestore.Update{Path: field, Value: value})
		}
	}
	for _, field := range p.Fields() {
		items, ok := p.Append[field]
		if !ok {
			continue
		}
		values := make([]any, 0, len(items))
		for _, item := range items {
			value, err := plain(item)
			if err != nil {
				return nil, fmt.Errorf("encode %s element: %w", field, err)
			}
			values = append(values, value)
		}
		updates = append(updates, firestore.Update{Path: field, Value: firestore.ArrayUnion(values...)})
	}
	return updates, nil
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// plain converts v to JSON-shaped maps, slices and scalars that Firestore
// can store.
func plain(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toMap(c billing.Client) (map[string]any, error) {
	raw, err := billing.EncodeClient(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode client: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to encode client: %w", err)
	}
	return data, nil
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (billing.Client, error) {
	raw, err := json.Marshal(snap.Data())
	if err != nil {
		return billing.Client{}, fmt.Errorf("client %s: %w", snap.Ref.ID, err)
	}
	c, err := billing.DecodeClient(raw)
	if err != nil {
		return billing.Client{}, fmt.Errorf("client %s: %w", snap.Ref.ID, err)
	}
	c.ID = snap.Ref.ID
	return c, nil
}

func notFound(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s client %s: %w", op, id, billing.ErrClientNotFound)
	}
	return fmt.Errorf("%s client %s: %w", op, id, err)
}

var _ billing.ClientStore = (*Store)(nil)
