// Package storage persists scraped property records and run artefacts.
package storage

import (
	"context"
	"errors"

	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// Dataset is an append-only sink for canonical property records.
type Dataset interface {
	Push(ctx context.Context, rec types.PropertyRecord) error
}

// KVStore holds small named JSON documents alongside the dataset.
type KVStore interface {
	Set(ctx context.Context, key string, value any) error
}

// Pipeline fans one record out to every configured sink. A record counts as
// saved only when every sink accepted it.
type Pipeline struct {
	sinks []Dataset
}

// NewPipeline constructs a pipeline over the non-nil sinks.
func NewPipeline(sinks ...Dataset) *Pipeline {
	kept := make([]Dataset, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &Pipeline{sinks: kept}
}

// Push appends the record to every sink, joining any errors.
func (p *Pipeline) Push(ctx context.Context, rec types.PropertyRecord) error {
	if p == nil {
		return nil
	}
	var err error
	for _, sink := range p.sinks {
		if perr := sink.Push(ctx, rec); perr != nil {
			err = errors.Join(err, perr)
		}
	}
	return err
}
