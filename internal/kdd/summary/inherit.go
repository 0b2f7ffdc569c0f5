package summary

import (
	"context"
	"strings"

	"github.com/earthref/KDD/internal/kdd/datamodel"
)

// inheritParents copies the contribution's own fields onto every group
// under "contribution", so groups can be filtered by contribution attributes.
// Fields starting with "__" stay private to the root.
func inheritParents(ctx context.Context, p *pass) (*pass, error) {
	root, ok := p.doc.Root.Bucket(datamodel.RootTable)
	if !ok {
		return p, nil
	}
	for _, table := range p.doc.Tables() {
		if err := p.yield(ctx); err != nil {
			return p, err
		}
		for _, group := range p.doc.GroupsOf(table) {
			group.Summary.put(keyContribution, root.cloneWithout(func(column string) bool {
				return strings.HasPrefix(column, "__")
			}))
		}
	}
	return p, nil
}
