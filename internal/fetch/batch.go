// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/hoanganhduc/getscipapers-sub000/internal/doi"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

// Batch processes identifiers sequentially, applying the configured
// delay between consecutive items. The result always holds exactly one
// entry per input, in input order: inputs that fail DOI normalization
// get a Failed outcome instead of being dropped, and one item's failure
// never stops the rest of the run.
func (o *Orchestrator) Batch(ctx context.Context, inputs []string) types.BatchResult {
	var result types.BatchResult
	for i, in := range inputs {
		if i > 0 && o.cfg.DownloadDelay > 0 {
			select {
			case <-time.After(o.cfg.DownloadDelay):
			case <-ctx.Done():
			}
		}

		item := types.BatchItem{Input: in}
		if ctx.Err() != nil {
			item.Outcome = types.Failed("", fmt.Sprintf("batch canceled: %v", ctx.Err()))
			result.Items = append(result.Items, item)
			continue
		}

		d, ok := doi.Normalize(in)
		if !ok {
			fmt.Fprintf(o.w, "failed:  %s (invalid DOI)\n", in)
			item.Outcome = types.Failed("", "invalid DOI")
			result.Items = append(result.Items, item)
			continue
		}
		item.DOI = d
		item.Outcome = o.Fetch(ctx, d)
		if item.Outcome.Kind == types.OutcomeFailed {
			fmt.Fprintf(o.w, "failed:  %s (%s)\n", in, item.Outcome.Reason)
		}
		result.Items = append(result.Items, item)
	}

	succeeded, requestable, failed := result.Counts()
	fmt.Fprintf(o.w, "\nBatch summary: %d downloaded, %d requested, %d failed (total: %d)\n",
		succeeded, requestable, failed, len(result.Items))
	return result
}
