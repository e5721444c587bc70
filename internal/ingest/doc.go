// Package ingest drives NDJSON query logs through the flattener and the
// category router.
//
// A Pipeline reads one stream in batches: each batch is flattened in
// parallel, dropped lines are counted by reason and the surviving records
// are dispatched to a router. A Runner wraps pipelines into runs: it
// expands input paths (plain, gzip and zip), creates one router per output
// target, records each run in the ledger and reports it to observers.
package ingest
