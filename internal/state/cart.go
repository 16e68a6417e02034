package state

import (
	"context"
	"encoding/json"

	"github.com/abgdnv/storefront/internal/api"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/kvstore"
)

// Quantity is the line quantity as persisted in the KV store.
type Quantity = api.Quantity

// CartLine is one product in the cart with its aggregated quantity.
// ID is the id of the first server row of the product. RowIDs lists every
// row, oldest first.
type CartLine struct {
	ID          api.ID    `json:"id"`
	ProductID   api.ID    `json:"product_id"`
	Name        string    `json:"name"`
	Price       api.Price `json:"price"`
	Image       string    `json:"image,omitempty"`
	Description string    `json:"description,omitempty"`
	Quantity    Quantity  `json:"quantity"`
	RowIDs      []api.ID  `json:"row_ids,omitempty"`
}

// Units is the line quantity, with a missing or invalid quantity counted as 1.
func (l CartLine) Units() int {
	if l.Quantity < 1 {
		return 1
	}
	return int(l.Quantity)
}

func (l CartLine) rows() []api.ID {
	if len(l.RowIDs) > 0 {
		return l.RowIDs
	}
	return []api.ID{l.ID}
}

func (l CartLine) productID() api.ID {
	if l.ProductID != "" {
		return l.ProductID
	}
	return l.ID
}

// groupRows folds per-unit rows into lines, keeping first-seen order and the
// descriptive fields of the first row of each product.
func groupRows(rows []api.CartRow) []CartLine {
	lines := make([]CartLine, 0, len(rows))
	index := make(map[api.ID]int, len(rows))
	for _, row := range rows {
		key := row.ProductID
		if key == "" {
			key = "row:" + row.ID
		}
		if i, ok := index[key]; ok {
			lines[i].Quantity++
			lines[i].RowIDs = append(lines[i].RowIDs, row.ID)
			continue
		}
		index[key] = len(lines)
		lines = append(lines, CartLine{
			ID:          row.ID,
			ProductID:   row.ProductID,
			Name:        row.Name,
			Price:       row.Price,
			Image:       row.Image,
			Description: row.Description,
			Quantity:    1,
			RowIDs:      []api.ID{row.ID},
		})
	}
	return lines
}

// CartTotal is the sum of price times quantity over all lines.
func (s *Store) CartTotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, l := range s.cart {
		total += float64(l.Price) * float64(l.Units())
	}
	return total
}

// CartCount is the number of units in the cart.
func (s *Store) CartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	for _, l := range s.cart {
		count += l.Units()
	}
	return count
}

// LoadCart replaces the cart with the server's rows grouped by product.
// Without a session it does nothing.
func (s *Store) LoadCart(ctx context.Context) error {
	s.clearError()
	token := s.Token()
	if token == "" {
		return nil
	}

	rows, err := s.client.Cart(ctx, token)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load cart", "error", err)
		s.setError(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = groupRows(rows)
	s.errMsg = ""
	s.persistCart(ctx)
	return nil
}

// AddToCart adds one unit of productID and reloads the cart.
func (s *Store) AddToCart(ctx context.Context, productID api.ID) error {
	s.clearError()
	token, err := s.requireToken()
	if err != nil {
		return err
	}
	if err := s.client.AddToCart(ctx, token, productID); err != nil {
		s.logger.WarnContext(ctx, "failed to add to cart", "product_id", productID, "error", err)
		s.setError(err)
		return err
	}
	s.cartMutations.Add(ctx, 1)
	return s.LoadCart(ctx)
}

// RemoveFromCart deletes every unit of the line lineID and reloads the cart.
// The line is resolved against a freshly loaded cart.
func (s *Store) RemoveFromCart(ctx context.Context, lineID api.ID) error {
	s.clearError()
	token, err := s.requireToken()
	if err != nil {
		return err
	}
	line, err := s.syncedLine(ctx, lineID)
	if err != nil {
		return err
	}
	return s.mutateAndReload(ctx, func() error {
		for _, rowID := range line.rows() {
			if err := s.client.RemoveFromCart(ctx, token, rowID); err != nil {
				return err
			}
			s.cartMutations.Add(ctx, 1)
		}
		return nil
	})
}

// UpdateCartQuantity sets the quantity of lineID. Missing units are added one
// request at a time and surplus units are removed newest first. A quantity of
// zero or less removes the line. The difference is computed against the
// server's current cart, not the cached one.
func (s *Store) UpdateCartQuantity(ctx context.Context, lineID api.ID, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, lineID)
	}
	s.clearError()
	token, err := s.requireToken()
	if err != nil {
		return err
	}
	line, err := s.syncedLine(ctx, lineID)
	if err != nil {
		return err
	}

	diff := quantity - line.Units()
	if diff == 0 {
		return nil
	}
	return s.mutateAndReload(ctx, func() error {
		for ; diff > 0; diff-- {
			if err := s.client.AddToCart(ctx, token, line.productID()); err != nil {
				return err
			}
			s.cartMutations.Add(ctx, 1)
		}
		rows := line.rows()
		for i := len(rows) - 1; diff < 0 && i >= 0; i, diff = i-1, diff+1 {
			if err := s.client.RemoveFromCart(ctx, token, rows[i]); err != nil {
				return err
			}
			s.cartMutations.Add(ctx, 1)
		}
		return nil
	})
}

// ClearCart empties the local cart without touching the server.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	return s.kv.Remove(ctx, kvstore.KeyCart)
}

// mutateAndReload runs the remote mutation, then resynchronizes the cart even
// when the mutation failed part way.
func (s *Store) mutateAndReload(ctx context.Context, mutate func() error) error {
	if err := mutate(); err != nil {
		s.logger.WarnContext(ctx, "cart mutation failed", "error", err)
		if loadErr := s.LoadCart(ctx); loadErr != nil {
			s.logger.WarnContext(ctx, "failed to resync cart", "error", loadErr)
		}
		s.setError(err)
		return err
	}
	return s.LoadCart(ctx)
}

// syncedLine reloads the cart and looks up lineID in it.
func (s *Store) syncedLine(ctx context.Context, lineID api.ID) (CartLine, error) {
	if err := s.LoadCart(ctx); err != nil {
		return CartLine{}, err
	}
	line, ok := s.findLine(lineID)
	if !ok {
		s.setError(sferrors.ErrCartLineNotFound)
		return CartLine{}, sferrors.ErrCartLineNotFound
	}
	return line, nil
}

func (s *Store) findLine(lineID api.ID) (CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.cart {
		if l.ID == lineID {
			return l, true
		}
	}
	return CartLine{}, false
}

// requireToken returns the session token, recording ErrUnauthenticated in
// Error when there is none.
func (s *Store) requireToken() (string, error) {
	token := s.Token()
	if token == "" {
		err := &ValidationError{Err: sferrors.ErrUnauthenticated}
		s.setError(err)
		return "", err
	}
	return token, nil
}

// persistCart writes the cart through to the KV store. Callers hold s.mu.
// Failures are logged: memory stays authoritative.
func (s *Store) persistCart(ctx context.Context) {
	blob, err := json.Marshal(s.cart)
	if err == nil {
		err = s.kv.Set(ctx, kvstore.KeyCart, string(blob))
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist cart", "error", err)
	}
}
