package usecase

import (
	"fmt"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// Registry maps platform names to their publisher and OAuth handler.
type Registry struct {
	publishers map[model.Platform]repository.IPublisher
	handlers   map[model.Platform]repository.IOAuthHandler
	order      []model.Platform
}

func NewRegistry() *Registry {
	return &Registry{
		publishers: map[model.Platform]repository.IPublisher{},
		handlers:   map[model.Platform]repository.IOAuthHandler{},
	}
}

// Register adds a platform. handler may be nil for platforms connected out of band.
func (r *Registry) Register(publisher repository.IPublisher, handler repository.IOAuthHandler) *Registry {
	p := publisher.Platform()
	if _, ok := r.publishers[p]; !ok {
		r.order = append(r.order, p)
	}
	r.publishers[p] = publisher
	if handler != nil {
		r.handlers[p] = handler
	}
	return r
}

func (r *Registry) Publisher(platform model.Platform) (repository.IPublisher, error) {
	pub, ok := r.publishers[platform]
	if !ok {
		return nil, model.NewInvalidRequestError(platform, "dispatch", fmt.Sprintf("platform %q is not supported", platform))
	}
	return pub, nil
}

func (r *Registry) OAuthHandler(platform model.Platform) (repository.IOAuthHandler, error) {
	h, ok := r.handlers[platform]
	if !ok {
		return nil, model.NewUnsupportedError(platform, "oauth", fmt.Sprintf("%s has no OAuth flow configured", platform))
	}
	return h, nil
}

// Platforms returns the registered platforms in registration order.
func (r *Registry) Platforms() []model.Platform {
	out := make([]model.Platform, len(r.order))
	copy(out, r.order)
	return out
}
