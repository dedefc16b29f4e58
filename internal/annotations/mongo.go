package annotations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/storecfg"
)

const defaultCollection = "faculty_notes"

// noteDoc is the stored shape of a note.
type noteDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Faculty   string        `bson:"faculty"`
	Text      string        `bson:"text"`
	Timestamp time.Time     `bson:"timestamp"`
}

func (d noteDoc) toModel() models.Note {
	return models.Note{
		ID:        d.ID.Hex(),
		Faculty:   d.Faculty,
		Text:      d.Text,
		CreatedAt: d.Timestamp.UTC(),
	}
}

// Mongo is the production annotation backend.
type Mongo struct {
	client *mongo.Client
	notes  *mongo.Collection
	now    func() time.Time
}

var _ Store = (*Mongo)(nil)

// NewMongo creates a client for cfg without contacting the server.
func NewMongo(cfg storecfg.Config, opts ...Option) (*Mongo, error) {
	clientOpts := options.Client().ApplyURI(cfg.NetworkURI("mongodb"))
	if cfg.User != "" {
		clientOpts.SetAuth(options.Credential{Username: cfg.User, Password: cfg.Password})
	}
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("annotations: connect: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = defaultCollection
	}
	o := buildOptions(opts)
	return &Mongo{
		client: client,
		notes:  client.Database(cfg.Database).Collection(collection),
		now:    o.now,
	}, nil
}

// OpenMongo connects to cfg and pings the primary.
func OpenMongo(ctx context.Context, cfg storecfg.Config, opts ...Option) (*Mongo, error) {
	m, err := NewMongo(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		_ = m.client.Disconnect(context.Background())
		return nil, apperr.E(Name, "open", apperr.ErrUnavailable, err)
	}
	return m, nil
}

// EnsureSchema creates the (faculty, timestamp desc) index used by reads.
func (m *Mongo) EnsureSchema(ctx context.Context) error {
	_, err := m.notes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "faculty", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fail(ctx, "ensure_schema", err)
	}
	return nil
}

func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}

func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return apperr.E(Name, "ping", apperr.ErrUnavailable, err)
	}
	return nil
}

func (m *Mongo) NotesForFaculty(ctx context.Context, faculty string) ([]models.Note, error) {
	const op = "notes_for_faculty"
	cur, err := m.notes.Find(ctx,
		bson.D{{Key: "faculty", Value: faculty}},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	var docs []noteDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	out := make([]models.Note, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (m *Mongo) AddNote(ctx context.Context, faculty, text string) (models.WriteStatus, error) {
	body, ok := normalize(text)
	if !ok {
		return models.StatusNoOp, nil
	}
	doc := noteDoc{
		Faculty:   faculty,
		Text:      body,
		Timestamp: ceilMillis(m.now().UTC()),
	}
	if _, err := m.notes.InsertOne(ctx, doc); err != nil {
		return models.StatusNoOp, fail(ctx, "add_note", err, slog.String("faculty", faculty))
	}
	return models.StatusWritten, nil
}

// ceilMillis rounds t up to BSON datetime precision so the stored stamp is
// never earlier than the moment of the call.
func ceilMillis(t time.Time) time.Time {
	if r := t.Truncate(time.Millisecond); !r.Equal(t) {
		return r.Add(time.Millisecond)
	}
	return t
}
