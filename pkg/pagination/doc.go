// Package pagination walks the pages of one split.
//
// Zendesk uses two schemes. Incremental export endpoints return an
// after_cursor and an end_of_stream flag; the time window is sent once with
// start_time/end_time and encoded in the cursor afterwards. Listing endpoints
// take page and per_page, and a page shorter than per_page is the last one.
// Both are a Style, and a single loop in Fetcher drives either.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(zendeskClient, 100, logger)
//	for record, err := range fetcher.Items(ctx, sp) {
//		if err != nil {
//			return err
//		}
//		// map record
//	}
//
// Pages within a split are fetched strictly one after the other. Parallelism
// happens across splits, see package extract.
package pagination
