// Package enrichment keeps the location of schools and companies derived
// from their current address.
//
// Enrich is the whole decision for one change: deletions and changes that
// leave the composite address untouched do nothing, otherwise the composite
// is resolved and a successful result is merged into the document as
// location. Writing location alone never alters the composite, so the
// pipeline's own write-back is a no-op when it comes back around the feed.
package enrichment

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"prospector/internal/docstore"
	"prospector/internal/geocode"
)

const (
	AddressField  = "address"
	LocationField = "location"

	compositeSeparator = ", "
)

// Resolver resolves a composite address.
type Resolver interface {
	Resolve(ctx context.Context, address string) (geocode.Point, bool)
}

// Writer merges fields into a document.
type Writer interface {
	Merge(ctx context.Context, ref docstore.Ref, fields docstore.Document) error
}

// Kind is a watched collection and the locality field paired with its
// address.
type Kind struct {
	Collection    string
	LocalityField string
}

func Schools() Kind {
	return Kind{Collection: "schools", LocalityField: "city"}
}

func Companies(localityField string) Kind {
	return Kind{Collection: "companies", LocalityField: localityField}
}

// Outcome is what Enrich did with a change.
type Outcome string

const (
	OutcomeDeleted    Outcome = "deleted"
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeUpdated    Outcome = "updated"
)

// Composite joins the address and locality of doc. Absent or empty fields
// render as empty segments, so a document with neither yields ", ".
func Composite(kind Kind, doc docstore.Document) string {
	return fieldText(doc[AddressField]) + compositeSeparator + fieldText(doc[kind.LocalityField])
}

// Enrich applies one change. Only a failed write is an error; an unresolved
// address leaves the document as it was.
func Enrich(ctx context.Context, kind Kind, change docstore.Change, resolver Resolver, writer Writer) (Outcome, error) {
	if change.After == nil {
		return OutcomeDeleted, nil
	}

	after := Composite(kind, change.After)
	if after == Composite(kind, change.Before) {
		return OutcomeUnchanged, nil
	}

	point, ok := resolver.Resolve(ctx, after)
	if !ok {
		return OutcomeUnresolved, nil
	}

	if err := writer.Merge(ctx, change.Ref, docstore.Document{LocationField: point.Fields()}); err != nil {
		return OutcomeUnresolved, fmt.Errorf("write location: %w", err)
	}
	return OutcomeUpdated, nil
}

// fieldText renders a field the way a falsy-to-empty template would: absent,
// null, false, zero and empty values become "".
func fieldText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 || math.IsNaN(t) {
			return ""
		}
		return numberText(t)
	case int:
		if t == 0 {
			return ""
		}
		return strconv.Itoa(t)
	case int64:
		if t == 0 {
			return ""
		}
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// numberText renders f the way a JavaScript template literal does: plain
// digits between 1e-6 and 1e21, exponent form with an unpadded exponent
// outside that range.
func numberText(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); abs < 1e21 && abs >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
