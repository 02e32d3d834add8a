package blobref

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"voice-recorder/internal/domain"
)

const scheme = "blob:"

// Registry hands out blob references for artifacts and keeps each artifact
// reachable until its reference is released.
type Registry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	blobs map[string]*domain.Artifact
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		blobs:  make(map[string]*domain.Artifact),
	}
}

func (r *Registry) Create(artifact *domain.Artifact) (domain.Reference, error) {
	id := uuid.New().String()

	r.mu.Lock()
	r.blobs[id] = artifact
	r.mu.Unlock()

	r.logger.Debug("blob reference created", "id", id, "bytes", artifact.Size())
	return domain.Reference(scheme + id), nil
}

// Release frees the artifact behind ref. Releasing an unknown or already
// released reference is a no-op.
func (r *Registry) Release(ref domain.Reference) {
	id := ID(ref)

	r.mu.Lock()
	_, ok := r.blobs[id]
	delete(r.blobs, id)
	r.mu.Unlock()

	if ok {
		r.logger.Debug("blob reference released", "id", id)
	}
}

// Resolve accepts either a full reference or its bare ID.
func (r *Registry) Resolve(ref string) (*domain.Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	artifact, ok := r.blobs[ID(domain.Reference(ref))]
	return artifact, ok
}

// Live returns the number of unreleased references.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

func ID(ref domain.Reference) string {
	return strings.TrimPrefix(string(ref), scheme)
}
