package models

import (
	"encoding/json"
	"fmt"

	"github.com/huangang/taskpulse/backend/internal/store"
)

// toItem flattens v into table attributes and overlays the key attributes.
func toItem(v any, entity string, keys store.Item) (store.Item, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", entity, err)
	}
	item := store.Item{}
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("encode %s: %w", entity, err)
	}
	for name, value := range keys {
		if value == "" {
			continue
		}
		item[name] = value
	}
	item["entityType"] = entity
	return item, nil
}

// fromItem fills v from table attributes. Key attributes are ignored by the
// entity structs.
func fromItem(item store.Item, v any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
