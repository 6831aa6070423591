// Package main hosts the PubMed PDF resolver service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server accepts batches of PubMed article URLs, stores them as jobs in the in-memory
//     JobStore, and hands the job ID to the dispatcher. Submission returns as soon as the job is queued.
//   - Dispatcher & queue: job IDs flow through a bounded in-memory queue sized by runner.queue_depth and are drained
//     by a fixed worker pool sized by runner.concurrency. Each job is owned by one worker; items inside a job resolve
//     sequentially unless runner.item_concurrency is above one.
//   - Resolution: resolver.Manager normalizes the article URL, fetches the PubMed page, and tries the PMC repository
//     first and the publisher landing page second. Pages come from the Colly fetcher, or from canned markup when
//     resolver.mock_mode is set.
//   - Notifications: when pubsub.project_id and pubsub.topic_name are set, a completion summary per job is published
//     to Pub/Sub; otherwise summaries are kept in memory.
//
// Quick checklist:
//   - Configure env vars: RESOLVER_SERVER_PORT or PORT, RESOLVER_RESOLVER_TIMEOUT_SECONDS,
//     RESOLVER_RESOLVER_RETRIES, RESOLVER_RESOLVER_MOCK_MODE, RESOLVER_RUNNER_CONCURRENCY, RESOLVER_PUBSUB_*.
//   - Run locally: go run ./cmd/resolver -config config.yaml (or rely solely on env overrides).
//   - State lives in memory only; restarting the process drops all jobs.
package main
