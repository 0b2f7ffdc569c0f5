package summary

import "context"

// aggregateAll merges the table buckets of every container into its "_all"
// bucket and marks the container complete or not.
func aggregateAll(ctx context.Context, p *pass) (*pass, error) {
	for _, container := range p.doc.Containers() {
		if err := ctx.Err(); err != nil {
			return p, err
		}
		container.ensure(keyAll)
		for _, table := range container.Tables() {
			if table == keyAll || table == keyContribution {
				continue
			}
			bucket, _ := container.Bucket(table)
			p.mergeBucket(container, table, keyAll, bucket)
		}
		container.setIncomplete(p.mode == ModeCounts)
	}
	return p, nil
}
