// Package store is the single wide entity table every record lives in.
//
// Items are addressed by a partition key (PK) and sort key (SK) and may carry
// a second key pair (GSI1PK/GSI1SK) that is queryable through the GSI1 index.
// Two backends implement Store: a gorm table for sqlite/mysql/postgres and a
// DynamoDB table.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangang/taskpulse/backend/internal/config"
)

// Attribute names of the key schema.
const (
	AttrPK     = "PK"
	AttrSK     = "SK"
	AttrGSI1PK = "GSI1PK"
	AttrGSI1SK = "GSI1SK"

	// IndexGSI1 is the only secondary index.
	IndexGSI1 = "GSI1"
)

const (
	DefaultBatchWriteSize = 25
	DefaultBatchGetSize   = 100
)

var (
	// ErrNotFound is returned by Get when no item has the key.
	ErrNotFound = errors.New("store: item not found")
	// ErrPreconditionFailed is returned when a write condition does not hold.
	ErrPreconditionFailed = errors.New("store: precondition failed")
)

// Item is one row of the table: attribute name to value.
type Item map[string]any

// Str returns the string attribute name, or "" when absent or not a string.
func (it Item) Str(name string) string {
	s, _ := it[name].(string)
	return s
}

// Key returns the primary key of the item.
func (it Item) Key() Key {
	return Key{PK: it.Str(AttrPK), SK: it.Str(AttrSK)}
}

// Key identifies an item and, for index reads, its position in GSI1.
// It doubles as the structured continuation token of a page.
type Key struct {
	PK     string `json:"PK"`
	SK     string `json:"SK"`
	GSI1PK string `json:"GSI1PK,omitempty"`
	GSI1SK string `json:"GSI1SK,omitempty"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.PK, k.SK)
}

// Condition guards a single-item write.
type Condition int

const (
	Always Condition = iota
	MustExist
	MustNotExist
)

// WriteMode selects what BatchWrite does with each item.
type WriteMode int

const (
	WritePut WriteMode = iota
	WriteDelete
)

// Query reads one page of a partition, optionally through GSI1.
type Query struct {
	Index      string // "" for the base table or IndexGSI1
	Partition  string
	SortPrefix string
	Limit      int // 0 lets the backend choose
	StartKey   *Key
}

// Filter restricts a scan. Equality on every Equals entry and presence of
// every Exists attribute must hold.
type Filter struct {
	Equals map[string]string
	Exists []string
}

// Scan reads one page of the whole table. Limit bounds the items examined,
// not the items matched.
type Scan struct {
	Filter   Filter
	Limit    int
	StartKey *Key
}

// Page is one bounded read. LastKey is nil when nothing follows.
type Page struct {
	Items   []Item
	LastKey *Key
}

// Store is the entity table.
type Store interface {
	Get(ctx context.Context, key Key) (Item, error)
	Put(ctx context.Context, item Item, cond Condition) error
	// Update applies fields to the item and returns it as stored afterwards.
	// A nil field value removes the attribute.
	Update(ctx context.Context, key Key, fields map[string]any, cond Condition) (Item, error)
	Delete(ctx context.Context, key Key, cond Condition) error
	// BatchGet returns the items that exist among keys, in no particular order.
	BatchGet(ctx context.Context, keys []Key) ([]Item, error)
	// BatchWrite writes or deletes items in sequential chunks. A failing chunk
	// stops the batch and is reported as a *BatchError.
	BatchWrite(ctx context.Context, items []Item, mode WriteMode) error
	Query(ctx context.Context, q Query) (*Page, error)
	Scan(ctx context.Context, s Scan) (*Page, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	cfg = withDefaults(cfg)
	switch cfg.Driver {
	case "sqlite", "mysql", "postgres", "memory":
		return OpenGorm(cfg)
	case "dynamodb":
		return OpenDynamo(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func withDefaults(cfg config.StoreConfig) config.StoreConfig {
	if cfg.Table == "" {
		cfg.Table = "ProjectManagement"
	}
	if cfg.BatchWriteSize <= 0 || cfg.BatchWriteSize > DefaultBatchWriteSize {
		cfg.BatchWriteSize = DefaultBatchWriteSize
	}
	if cfg.BatchGetSize <= 0 || cfg.BatchGetSize > DefaultBatchGetSize {
		cfg.BatchGetSize = DefaultBatchGetSize
	}
	return cfg
}

func checkKeyed(item Item) error {
	if item.Str(AttrPK) == "" || item.Str(AttrSK) == "" {
		return fmt.Errorf("store: item missing %s or %s", AttrPK, AttrSK)
	}
	return nil
}

func checkFields(fields map[string]any) error {
	for name := range fields {
		if name == AttrPK || name == AttrSK {
			return fmt.Errorf("store: cannot update key attribute %s", name)
		}
	}
	return nil
}

// matches reports whether item passes f.
func (f Filter) matches(item Item) bool {
	for name, want := range f.Equals {
		if item.Str(name) != want {
			return false
		}
	}
	for _, name := range f.Exists {
		if v, ok := item[name]; !ok || v == nil {
			return false
		}
	}
	return true
}
