// Package scraper runs a creator collection.
//
// A run moves through idle, live_sweep, offline_sweep, enrichment and
// complete, in that order and never backwards:
//
//   - live_sweep walks /streams and keeps streams inside the viewer bounds
//   - offline_sweep walks /search/channels for offline channels in the
//     requested language, skipping identities already collected
//   - enrichment looks up profiles in batches of 100 and extracts contact
//     details from each biography
//
// A quota, API or transport failure truncates only the phase it happens in
// and is counted in CollectionProgress.Errors. Auth and validation failures
// abort the run. Cancelling ctx stops paging and returns what was collected.
package scraper
