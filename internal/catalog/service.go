package catalog

import (
	"context"
	"fmt"

	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
)

// ChangeNotifier is told about every committed write.
type ChangeNotifier interface {
	OnCreated(ctx context.Context, p Product) error
	OnUpdated(ctx context.Context, p Product) error
	OnDeleted(ctx context.Context, id int64) error
}

// Service is the CRUD layer over the authoritative store. Notifications run
// after the repository call returns and their failures are only logged: a
// committed write is never reported as failed because of messaging.
type Service struct {
	repo     Repository
	notifier ChangeNotifier
	logger   loggingpkg.ServiceLogger
}

// NewService returns a Service. notifier may be nil.
func NewService(repo Repository, notifier ChangeNotifier, logger loggingpkg.ServiceLogger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.FindByID(ctx, id)
}

// Count returns the number of products in the authoritative store.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	if err := Validate(p); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	if s.notifier != nil {
		s.report(s.notifier.OnCreated(ctx, created), "created", created.ID)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, p Product) (Product, error) {
	if err := Validate(p); err != nil {
		return Product{}, err
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if s.notifier != nil {
		s.report(s.notifier.OnUpdated(ctx, updated), "updated", updated.ID)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if s.notifier != nil {
		s.report(s.notifier.OnDeleted(ctx, id), "deleted", id)
	}
	return nil
}

func (s *Service) report(err error, change string, id int64) {
	if err == nil {
		return
	}
	s.logger.Error("Change notification failed after commit", err, loggingpkg.LogFields{
		"change":     change,
		"product_id": id,
	})
}
