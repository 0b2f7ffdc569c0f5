package summary

import (
	"context"
	"strings"

	"github.com/earthref/KDD/internal/kdd/crossref"
	"github.com/earthref/KDD/internal/kdd/datamodel"
)

// ReferenceResolver looks up bibliographic metadata for a reference token.
type ReferenceResolver interface {
	ResolveReference(ctx context.Context, reference string) (*crossref.Reference, error)
}

// enrichReference attaches the resolved reference to the contribution
// summary. Lookup failures leave the summary as it is.
func enrichReference(ctx context.Context, p *pass) (*pass, error) {
	if p.resolver == nil {
		return p, nil
	}
	bucket := p.doc.Root.ensure(datamodel.RootTable)
	reference := ""
	if acc, ok := bucket.Get("reference"); ok {
		if scalar, ok := acc.(*Scalar); ok {
			reference, _ = scalar.Value.(string)
		}
	}
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return p, nil
	}
	resolved, err := p.resolver.ResolveReference(ctx, reference)
	if err != nil || resolved == nil {
		return p, nil
	}
	bucket.set(keyReference, &Scalar{Value: resolved})
	return p, nil
}
