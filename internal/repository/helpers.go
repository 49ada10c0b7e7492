package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/parisxmas/oxisite/internal/oxidb"
)

// normalizeID converts the _id field from numeric (float64) to string
// since OxiDB returns auto-increment numeric IDs.
func normalizeID(doc map[string]any) {
	if id, ok := doc["_id"]; ok {
		doc["_id"] = oxidb.IDString(id)
	}
}

// toNumericID converts a string ID to float64 for OxiDB queries.
func toNumericID(id string) any {
	if n, err := strconv.ParseFloat(id, 64); err == nil {
		return n
	}
	return id
}

func byID(id string) map[string]any {
	return map[string]any{"_id": toNumericID(id)}
}

// toDoc turns a model into a document without its _id.
func toDoc(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %T doc: %w", v, err)
	}
	delete(doc, "_id")
	return doc, nil
}

// fromDoc decodes a stored document into a model.
func fromDoc[T any](doc map[string]any) (*T, error) {
	normalizeID(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal doc: %w", err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return &v, nil
}

// fromDocs decodes a result set, skipping documents that no longer match
// the model.
func fromDocs[T any](docs []map[string]any) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := fromDoc[T](d)
		if err != nil {
			continue
		}
		out = append(out, *v)
	}
	return out
}

// one decodes an optional FindOne result.
func one[T any](doc map[string]any, err error) (*T, error) {
	if err != nil || doc == nil {
		return nil, err
	}
	return fromDoc[T](doc)
}

// committedID looks up the id of a document written inside a transaction.
// The server only buffers transactional inserts, so the id is known after
// commit by reading the document back through its unique key.
func committedID(ctx context.Context, c *oxidb.Client, collection string, key map[string]any) (string, error) {
	doc, err := c.FindOne(ctx, collection, key)
	if err != nil {
		return "", fmt.Errorf("read back %s: %w", collection, err)
	}
	if doc == nil {
		return "", fmt.Errorf("read back %s: committed document not found", collection)
	}
	return oxidb.IDString(doc["_id"]), nil
}

func page(skip, limit int) *oxidb.FindOptions {
	return &oxidb.FindOptions{
		Sort:  map[string]any{"createdAt": -1},
		Skip:  skip,
		Limit: limit,
	}
}
