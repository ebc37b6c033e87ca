package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ararat/reports/internal/config"
)

// FirestoreStore reads collections through the Firebase Admin SDK.
type FirestoreStore struct {
	client *firestore.Client
	log    zerolog.Logger
}

// NewFirestoreStore initializes the Firebase app and its Firestore client.
// The service account file is used when present, otherwise application
// default credentials apply.
func NewFirestoreStore(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err == nil {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		} else {
			log.Warn().
				Str("path", cfg.CredentialsFile).
				Msg("Firebase credentials file not found, falling back to default credentials")
		}
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	log.Info().Str("project", cfg.ProjectID).Msg("Firestore store initialized")

	return &FirestoreStore{
		client: client,
		log:    log.With().Str("store", "firestore").Logger(),
	}, nil
}

// Query implements RecordStore.
func (s *FirestoreStore) Query(ctx context.Context, q Query) ([]Document, error) {
	fq := s.client.Collection(q.Collection).Query

	for _, field := range q.EqualKeys() {
		fq = fq.Where(field, "==", q.Equals[field])
	}

	if !q.Range.Empty() {
		lower, upper := q.Range.Bounds()
		if lower != "" {
			fq = fq.Where(q.Range.Field, ">=", lower)
		}
		if upper != "" {
			fq = fq.Where(q.Range.Field, "<", upper)
		}
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", q.Collection, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}

	s.log.Debug().Str("collection", q.Collection).Int("count", len(docs)).Msg("Query completed")
	return docs, nil
}

// Ping reads at most one shop document.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	iter := s.client.Collection("shops").Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

// Close implements RecordStore.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
