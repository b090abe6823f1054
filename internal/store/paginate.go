package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ErrInvalidCursor is returned by DecodeCursor for tokens it did not produce.
var ErrInvalidCursor = errors.New("store: invalid cursor")

// QueryAll follows continuation keys until the partition is exhausted.
func QueryAll(ctx context.Context, s Store, q Query) ([]Item, error) {
	var all []Item
	for {
		page, err := s.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.LastKey == nil {
			return all, nil
		}
		q.StartKey = page.LastKey
	}
}

// ScanAll walks the entire table and returns the items passing the filter.
// It is meant for background maintenance, not request paths.
func ScanAll(ctx context.Context, s Store, sc Scan) ([]Item, error) {
	var all []Item
	for {
		page, err := s.Scan(ctx, sc)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.LastKey == nil {
			return all, nil
		}
		sc.StartKey = page.LastKey
	}
}

// EncodeCursor turns a continuation key into the opaque nextKey handed to
// clients. A nil key encodes to "".
func EncodeCursor(key *Key) string {
	if key == nil {
		return ""
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor. An empty cursor decodes to nil.
func DecodeCursor(cursor string) (*Key, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var key Key
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, ErrInvalidCursor
	}
	if key.PK == "" || key.SK == "" {
		return nil, ErrInvalidCursor
	}
	return &key, nil
}

// ParseLimit reads a client page size: default 20, capped at 100.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultPageLimit
	}
	if n > MaxPageLimit {
		return MaxPageLimit
	}
	return n
}
