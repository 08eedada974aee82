package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"stablecore/core/types"
	"stablecore/crypto"
	"stablecore/storage"
)

var positionPrefix = []byte("position/")

// Store persists engine positions inside a key-value database. It is the only
// component that writes position records; everything else reads through the
// engine.
type Store struct {
	db storage.Database
}

// NewStore wraps the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func positionKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), positionPrefix...), addr.String()...)
}

// GetPosition loads the position for the address. A missing record returns nil
// without error; callers materialise empty positions lazily.
func (s *Store) GetPosition(addr crypto.Address) (*types.Position, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("state: store not configured")
	}
	raw, err := s.db.Get(positionKey(addr))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	position := &types.Position{}
	if err := json.Unmarshal(raw, position); err != nil {
		return nil, fmt.Errorf("state: decode position: %w", err)
	}
	position.EnsureDefaults()
	return position, nil
}

// PutPosition persists the position record.
func (s *Store) PutPosition(addr crypto.Address, position *types.Position) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("state: store not configured")
	}
	if position == nil {
		return fmt.Errorf("state: nil position")
	}
	position.EnsureDefaults()
	raw, err := json.Marshal(position)
	if err != nil {
		return fmt.Errorf("state: encode position: %w", err)
	}
	return s.db.Put(positionKey(addr), raw)
}
