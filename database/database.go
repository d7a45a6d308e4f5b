package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/256dpi/lungo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MemoryScheme selects the embedded in-memory engine instead of a MongoDB server.
const MemoryScheme = "memory://"

// Store owns the database client and the collections of the blog.
type Store struct {
	Client   lungo.IClient
	Users    lungo.ICollection
	Posts    lungo.ICollection
	Comments lungo.ICollection

	engine       *lungo.Engine
	transactions bool
}

// Connect opens a store for the given URI. URIs starting with memory:// use
// the in-memory engine, everything else is dialed as a MongoDB server.
func Connect(ctx context.Context, uri, dbName string, transactions bool) (*Store, error) {
	if strings.HasPrefix(uri, MemoryScheme) {
		return OpenMemory(ctx, dbName, transactions)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := lungo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping MongoDB
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Println("Connected to MongoDB successfully")
	return newStore(client, nil, dbName, transactions), nil
}

// OpenMemory opens a store backed by a fresh in-memory engine.
func OpenMemory(ctx context.Context, dbName string, transactions bool) (*Store, error) {
	client, engine, err := lungo.Open(ctx, lungo.Options{
		Store: lungo.NewMemoryStore(),
	})
	if err != nil {
		return nil, err
	}

	return newStore(client, engine, dbName, transactions), nil
}

func newStore(client lungo.IClient, engine *lungo.Engine, dbName string, transactions bool) *Store {
	db := client.Database(dbName)
	return &Store{
		Client:       client,
		Users:        db.Collection("users"),
		Posts:        db.Collection("posts"),
		Comments:     db.Collection("comments"),
		engine:       engine,
		transactions: transactions,
	}
}

// EnsureIndexes creates the indexes the handlers rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}

	_, err = s.Posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("posts index: %w", err)
	}

	_, err = s.Comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("comments index: %w", err)
	}

	return nil
}

// WithTransaction runs fn as one unit of work. With transactions enabled the
// steps commit or abort together; otherwise they run sequentially and a
// failure leaves earlier steps applied.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}

	return s.Client.UseSession(ctx, func(sc lungo.ISessionContext) error {
		_, err := sc.WithTransaction(sc, func(tc lungo.ISessionContext) (interface{}, error) {
			return nil, fn(tc)
		})
		return err
	})
}

func (s *Store) Transactions() bool {
	return s.transactions
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	err := s.Client.Disconnect(ctx)
	if s.engine != nil {
		s.engine.Close()
	}
	if err != nil {
		return err
	}

	log.Println("Disconnected from MongoDB")
	return nil
}
