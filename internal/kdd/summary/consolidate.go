package summary

import "context"

// Consolidate freezes every open value sample and every open set of a
// non-internal column. Frozen accumulators are left as they are, so calling
// it again changes nothing.
func Consolidate(doc *Document) {
	if doc == nil {
		return
	}
	for _, container := range doc.Containers() {
		for _, table := range container.order {
			bucket := container.buckets[table]
			for _, column := range bucket.order {
				switch acc := bucket.columns[column].(type) {
				case *NumericRange:
					if !acc.Frozen() {
						acc.freeze()
					}
				case *CategoricalSet:
					if !acc.Frozen() && !internal(column) {
						acc.freeze()
					}
				}
			}
		}
	}
}

func consolidate(_ context.Context, p *pass) (*pass, error) {
	Consolidate(p.doc)
	return p, nil
}
