package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	recsCollection = "recommendations"
	logsCollection = "logs"
)

// Store guarda el historial de recomendaciones en MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Conexión a MongoDB
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	// Verificar conexión
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.recs().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "subject", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create history index: %w", err)
	}
	return nil
}

func (s *Store) recs() *mongo.Collection { return s.db.Collection(recsCollection) }
func (s *Store) logs() *mongo.Collection { return s.db.Collection(logsCollection) }

// Guardar recomendación (asigna ID y timestamp si faltan)
func (s *Store) SaveRecommendation(ctx context.Context, doc RecommendationDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.TimestampUnix == 0 {
		doc.TimestampUnix = time.Now().Unix()
	}
	if _, err := s.recs().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// Guardar log del proceso distribuido
func (s *Store) SaveLog(ctx context.Context, doc LogDocument) error {
	if doc.TimestampUnix == 0 {
		doc.TimestampUnix = time.Now().Unix()
	}
	if _, err := s.logs().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// Historial: documentos más recientes para subject
func (s *Store) History(ctx context.Context, subject string, limit int) ([]RecommendationDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.recs().Find(ctx, bson.M{"subject": subject}, opts)
	if err != nil {
		return nil, fmt.Errorf("find history: %w", err)
	}
	defer cur.Close(ctx)

	docs := []RecommendationDocument{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return docs, nil
}

// Cerrar cliente
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
