package state

import "context"

// LoadProducts replaces the catalog. Loading is true for the duration of the
// call and the outcome is reported through the returned flag and Error.
func (s *Store) LoadProducts(ctx context.Context) bool {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	products, err := s.client.Products(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load products", "error", err)
		s.errMsg = errorMessage(err)
		return false
	}
	s.products = products
	return true
}
