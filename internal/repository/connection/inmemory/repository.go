package inmemory

import (
	"log/slog"
	"sync"

	"github.com/sharetube/watchparty/internal/repository/connection"
)

type repo struct {
	clients map[string]*connection.Client
	// order keeps broadcast order stable across calls.
	order  []string
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		clients: make(map[string]*connection.Client),
		logger:  logger,
	}
}

func (r *repo) Add(client *connection.Client) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "connection_id", client.Id)
	if _, ok := r.clients[client.Id]; ok {
		r.logger.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.clients[client.Id] = client
	r.order = append(r.order, client.Id)

	return nil
}

func (r *repo) Remove(id string) (*connection.Client, error) {
	funcName := "connection.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "connection_id", id)
	client, ok := r.clients[id]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return nil, connection.ErrNotFound
	}

	delete(r.clients, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return client, nil
}

func (r *repo) Get(id string) (*connection.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[id]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return client, nil
}

// List returns a snapshot of the registered clients in registration order.
func (r *repo) List() []*connection.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*connection.Client, 0, len(r.order))
	for _, id := range r.order {
		clients = append(clients, r.clients[id])
	}

	return clients
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}
