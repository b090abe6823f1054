package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/taskpulse/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// scanPageSize bounds a page when the caller sets no limit.
const scanPageSize = 1000

// itemRecord is the row layout of the entity table.
type itemRecord struct {
	PK        string    `gorm:"column:pk;primaryKey;size:191"`
	SK        string    `gorm:"column:sk;primaryKey;size:191"`
	GSI1PK    *string   `gorm:"column:gsi1pk;size:191;index:idx_items_gsi1,priority:1"`
	GSI1SK    *string   `gorm:"column:gsi1sk;size:191;index:idx_items_gsi1,priority:2"`
	Data      string    `gorm:"column:data;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// GormStore keeps the entity table in a relational database.
type GormStore struct {
	db        *gorm.DB
	table     string
	writeSize int
	getSize   int
}

// OpenGorm connects to the database named by cfg and migrates the table.
func OpenGorm(cfg config.StoreConfig) (*GormStore, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "memory":
		return OpenMemory()
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	s := NewGormStore(db, cfg)
	if err := s.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate entity table: %w", err)
	}
	return s, nil
}

// OpenMemory returns a store backed by a private in-memory sqlite database.
// Nothing survives Close.
func OpenMemory() (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a new database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	s := NewGormStore(db, config.StoreConfig{Driver: "memory"})
	if err := s.AutoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewGormStore wraps an open connection. The table must already exist or be
// created with AutoMigrate.
func NewGormStore(db *gorm.DB, cfg config.StoreConfig) *GormStore {
	cfg = withDefaults(cfg)
	return &GormStore{
		db:        db,
		table:     cfg.Table,
		writeSize: cfg.BatchWriteSize,
		getSize:   cfg.BatchGetSize,
	}
}

func (s *GormStore) AutoMigrate() error {
	return s.db.Table(s.table).AutoMigrate(&itemRecord{})
}

func (s *GormStore) tx(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

func (s *GormStore) Get(ctx context.Context, key Key) (Item, error) {
	var rec itemRecord
	err := s.tx(ctx).Where("pk = ? AND sk = ?", key.PK, key.SK).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return rec.item()
}

func (s *GormStore) Put(ctx context.Context, item Item, cond Condition) error {
	if err := checkKeyed(item); err != nil {
		return err
	}
	rec, err := newRecord(item)
	if err != nil {
		return err
	}

	switch cond {
	case MustNotExist:
		err = s.tx(ctx).Create(rec).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPreconditionFailed
		}
	case MustExist:
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if ok, err := s.exists(tx, item.Key()); err != nil {
				return err
			} else if !ok {
				return ErrPreconditionFailed
			}
			return s.upsert(tx, rec)
		})
	default:
		err = s.upsert(s.db.WithContext(ctx), rec)
	}
	if err != nil && !errors.Is(err, ErrPreconditionFailed) {
		return fmt.Errorf("put %s: %w", item.Key(), err)
	}
	return err
}

func (s *GormStore) Update(ctx context.Context, key Key, fields map[string]any, cond Condition) (Item, error) {
	if err := checkFields(fields); err != nil {
		return nil, err
	}

	var updated Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec itemRecord
		err := tx.Table(s.table).Where("pk = ? AND sk = ?", key.PK, key.SK).Take(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if cond == MustExist {
				return ErrPreconditionFailed
			}
			updated = Item{AttrPK: key.PK, AttrSK: key.SK}
		case err != nil:
			return err
		default:
			if cond == MustNotExist {
				return ErrPreconditionFailed
			}
			if updated, err = rec.item(); err != nil {
				return err
			}
		}

		for name, value := range fields {
			if value == nil {
				delete(updated, name)
				continue
			}
			updated[name] = value
		}

		next, err := newRecord(updated)
		if err != nil {
			return err
		}
		return s.upsert(tx, next)
	})
	if err != nil {
		if errors.Is(err, ErrPreconditionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("update %s: %w", key, err)
	}
	return updated, nil
}

func (s *GormStore) Delete(ctx context.Context, key Key, cond Condition) error {
	res := s.tx(ctx).Where("pk = ? AND sk = ?", key.PK, key.SK).Delete(&itemRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", key, res.Error)
	}
	if cond == MustExist && res.RowsAffected == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

func (s *GormStore) BatchGet(ctx context.Context, keys []Key) ([]Item, error) {
	var items []Item
	for _, c := range chunk(keys, s.getSize) {
		parts := make([]string, 0, len(c))
		args := make([]any, 0, 2*len(c))
		for _, k := range c {
			parts = append(parts, "(pk = ? AND sk = ?)")
			args = append(args, k.PK, k.SK)
		}

		var recs []itemRecord
		if err := s.tx(ctx).Where("("+strings.Join(parts, " OR ")+")", args...).Find(&recs).Error; err != nil {
			return nil, fmt.Errorf("batch get: %w", err)
		}
		for i := range recs {
			item, err := recs[i].item()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *GormStore) BatchWrite(ctx context.Context, items []Item, mode WriteMode) error {
	for _, item := range items {
		if err := checkKeyed(item); err != nil {
			return err
		}
	}
	return writeChunks(items, s.writeSize, func(c []Item) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, item := range c {
				if mode == WriteDelete {
					key := item.Key()
					if err := tx.Table(s.table).Where("pk = ? AND sk = ?", key.PK, key.SK).Delete(&itemRecord{}).Error; err != nil {
						return err
					}
					continue
				}
				rec, err := newRecord(item)
				if err != nil {
					return err
				}
				if err := s.upsert(tx, rec); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (s *GormStore) Query(ctx context.Context, q Query) (*Page, error) {
	tx := s.tx(ctx)
	switch q.Index {
	case "":
		tx = tx.Where("pk = ?", q.Partition)
		if q.SortPrefix != "" {
			tx = tx.Where("sk LIKE ? ESCAPE '!'", likePrefix(q.SortPrefix))
		}
		if q.StartKey != nil {
			tx = tx.Where("sk > ?", q.StartKey.SK)
		}
		tx = tx.Order("sk ASC")
	case IndexGSI1:
		tx = tx.Where("gsi1pk = ?", q.Partition)
		if q.SortPrefix != "" {
			tx = tx.Where("gsi1sk LIKE ? ESCAPE '!'", likePrefix(q.SortPrefix))
		}
		if k := q.StartKey; k != nil {
			tx = tx.Where("((gsi1sk > ?) OR (gsi1sk = ? AND pk > ?) OR (gsi1sk = ? AND pk = ? AND sk > ?))",
				k.GSI1SK, k.GSI1SK, k.PK, k.GSI1SK, k.PK, k.SK)
		}
		tx = tx.Order("gsi1sk ASC").Order("pk ASC").Order("sk ASC")
	default:
		return nil, fmt.Errorf("unknown index %q", q.Index)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = scanPageSize
	}

	var recs []itemRecord
	if err := tx.Limit(limit + 1).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Partition, err)
	}
	return s.page(recs, limit, q.Index == IndexGSI1, nil)
}

func (s *GormStore) Scan(ctx context.Context, sc Scan) (*Page, error) {
	tx := s.tx(ctx)
	if sk, ok := sc.Filter.Equals[AttrSK]; ok {
		tx = tx.Where("sk = ?", sk)
	}
	if k := sc.StartKey; k != nil {
		tx = tx.Where("((pk > ?) OR (pk = ? AND sk > ?))", k.PK, k.PK, k.SK)
	}

	limit := sc.Limit
	if limit <= 0 {
		limit = scanPageSize
	}

	var recs []itemRecord
	if err := tx.Order("pk ASC").Order("sk ASC").Limit(limit + 1).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return s.page(recs, limit, false, &sc.Filter)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// page trims the look-ahead row and derives the continuation key from the
// last row examined.
func (s *GormStore) page(recs []itemRecord, limit int, index bool, filter *Filter) (*Page, error) {
	page := &Page{}
	if len(recs) > limit {
		recs = recs[:limit]
		last := recs[len(recs)-1]
		page.LastKey = &Key{PK: last.PK, SK: last.SK}
		if index {
			page.LastKey.GSI1PK = deref(last.GSI1PK)
			page.LastKey.GSI1SK = deref(last.GSI1SK)
		}
	}
	for i := range recs {
		item, err := recs[i].item()
		if err != nil {
			return nil, err
		}
		if filter != nil && !filter.matches(item) {
			continue
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func (s *GormStore) exists(tx *gorm.DB, key Key) (bool, error) {
	var n int64
	err := tx.Table(s.table).Where("pk = ? AND sk = ?", key.PK, key.SK).Count(&n).Error
	return n > 0, err
}

func (s *GormStore) upsert(tx *gorm.DB, rec *itemRecord) error {
	return tx.Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pk"}, {Name: "sk"}},
		DoUpdates: clause.AssignmentColumns([]string{"gsi1pk", "gsi1sk", "data", "updated_at"}),
	}).Create(rec).Error
}

func newRecord(item Item) (*itemRecord, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode item %s: %w", item.Key(), err)
	}
	return &itemRecord{
		PK:        item.Str(AttrPK),
		SK:        item.Str(AttrSK),
		GSI1PK:    optional(item.Str(AttrGSI1PK)),
		GSI1SK:    optional(item.Str(AttrGSI1SK)),
		Data:      string(data),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (r *itemRecord) item() (Item, error) {
	var item Item
	if err := json.Unmarshal([]byte(r.Data), &item); err != nil {
		return nil, fmt.Errorf("decode item %s/%s: %w", r.PK, r.SK, err)
	}
	return item, nil
}

// likePrefix escapes LIKE metacharacters with '!' and appends the wildcard.
func likePrefix(prefix string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(prefix) + "%"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
