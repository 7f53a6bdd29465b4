package memory

import (
	"context"
	"sort"

	"storelinker-service/internal/domain/product"
	xerrors "storelinker-service/internal/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	c := *p
	r.s.products[p.ID] = &c
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *ProductRepository) Find(ctx context.Context, f product.Filter) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []product.Product{}
	for _, p := range r.s.products {
		if f.Matches(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; !ok {
		return xerrors.ErrNotFound
	}
	c := *p
	r.s.products[p.ID] = &c
	return nil
}
