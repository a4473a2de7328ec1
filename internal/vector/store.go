// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/alan-mat/askdoc/internal/api"
)

var (
	ErrInvalidStoreType      = errors.New("no vector store found for given type")
	ErrFailedStoreInitialize = errors.New("failed to initialise vector store")
)

const (
	StoreTypePgvector = iota
	StoreTypeQdrant
)

var storeTypeMap = map[string]StoreType{
	"pgvector": StoreTypePgvector,
	"qdrant":   StoreTypeQdrant,
}

type StoreType int

// Store is the similarity-search collaborator. Query returns documents
// in ascending cosine-distance order with the limit applied by the
// store itself; callers never re-sort or post-filter.
type Store interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, collection Collection) error

	Upsert(ctx context.Context, collectionName string, records []*Record) error

	Query(ctx context.Context, params *QueryParams) ([]*api.Document, error)

	Close() error
}

type Config struct {
	Type string

	// DSN is the postgres connection string for the pgvector store.
	DSN string

	// Host and Port locate the qdrant instance.
	Host string
	Port int

	Dimensions uint
}

func NewStore(ctx context.Context, conf Config) (Store, error) {
	storeType, ok := storeTypeMap[conf.Type]
	if !ok {
		return nil, ErrInvalidStoreType
	}

	switch storeType {
	case StoreTypePgvector:
		store, err := NewPgStore(ctx, conf.DSN)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedStoreInitialize, err)
		}
		return store, nil
	case StoreTypeQdrant:
		store, err := NewQdrantStore(conf.Host, conf.Port)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedStoreInitialize, err)
		}
		return store, nil
	default:
		return nil, ErrInvalidStoreType
	}
}

// Collection declares one vector column of fixed dimension per stored
// document.
type Collection struct {
	Name       string
	Dimensions uint
}

// Record is one document together with its embedding, as written by
// the import pipeline.
type Record struct {
	ID        string
	Title     string
	Content   string
	Embedding []float32
}

type QueryParams struct {
	collection string
	query      []float32
	limit      uint
}

type QueryParamsOption func(*QueryParams)

func NewQueryParams(collection string, query []float32, opts ...QueryParamsOption) *QueryParams {
	qp := &QueryParams{
		collection: collection,
		query:      query,
		limit:      0,
	}

	for _, opt := range opts {
		opt(qp)
	}
	return qp
}

func WithLimit(limit uint) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.limit = limit
	}
}

func (qp *QueryParams) Limit() uint {
	return qp.limit
}
