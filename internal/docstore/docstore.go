// Package docstore is the keyed document store shared by the enrichment
// pipeline and the account services.
//
// Documents are JSON objects addressed by collection and key. Every committed
// mutation produces a Change carrying the before and after snapshots; the
// change feed delivers those to the enrichment pipeline.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Ref addresses one document.
type Ref struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
}

func (r Ref) String() string {
	return r.Collection + "/" + r.Key
}

// Document is a JSON object. Values read back from a store are the JSON
// decoding of what was written: numbers are float64, timestamps are
// RFC 3339 strings, nested objects are map[string]any.
type Document map[string]any

type serverTimestamp struct{}

// ServerTimestamp is replaced by the commit time when a write is applied.
var ServerTimestamp any = serverTimestamp{}

// Change is one committed mutation. A nil Before means the document was
// created; a nil After means it was deleted.
type Change struct {
	Ref    Ref      `json:"ref"`
	Before Document `json:"before,omitempty"`
	After  Document `json:"after,omitempty"`
}

// Reader performs point reads. A missing document yields sentinel.ErrNotFound.
type Reader interface {
	Get(ctx context.Context, ref Ref) (Document, error)
}

// Merger updates only the given top-level fields, creating the document when
// absent.
type Merger interface {
	Merge(ctx context.Context, ref Ref, fields Document) error
}

// Batch collects writes applied atomically by RunBatch. Set replaces the
// whole document; Delete of an absent document is not an error.
type Batch interface {
	Set(ref Ref, doc Document)
	Delete(ref Ref)
}

// Batcher applies every write staged by fn or none of them.
type Batcher interface {
	RunBatch(ctx context.Context, fn func(Batch) error) error
}

// Store is the full document store surface.
type Store interface {
	Reader
	Merger
	Batcher
}

// ChangeSink receives every committed change in commit order.
type ChangeSink interface {
	Publish(ctx context.Context, change Change) error
}

type opKind int

const (
	opSet opKind = iota
	opDelete
)

type op struct {
	kind opKind
	ref  Ref
	doc  Document
}

type stagedBatch struct {
	ops []op
}

func (b *stagedBatch) Set(ref Ref, doc Document) {
	b.ops = append(b.ops, op{kind: opSet, ref: ref, doc: doc})
}

func (b *stagedBatch) Delete(ref Ref) {
	b.ops = append(b.ops, op{kind: opDelete, ref: ref})
}

// normalize resolves ServerTimestamp values and returns the JSON form of doc
// along with its decoded copy.
func normalize(doc Document, now time.Time) ([]byte, Document, error) {
	resolved := make(Document, len(doc))
	for k, v := range doc {
		if _, ok := v.(serverTimestamp); ok {
			resolved[k] = now.UTC().Format(time.RFC3339Nano)
			continue
		}
		resolved[k] = v
	}
	raw, err := json.Marshal(resolved)
	if err != nil {
		return nil, nil, fmt.Errorf("encode document: %w", err)
	}
	decoded, err := decode(raw)
	if err != nil {
		return nil, nil, err
	}
	return raw, decoded, nil
}

func decode(raw []byte) (Document, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func mergeInto(base, fields Document) Document {
	out := make(Document, len(base)+len(fields))
	maps.Copy(out, base)
	maps.Copy(out, fields)
	return out
}
