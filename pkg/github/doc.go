// Package github provides webhook reconciliation for GitHub accounts.
// It keeps a desired set of repository webhooks in place across every repository
// owned by a set of organizations and users.
//
// The package includes:
// - Executor and FetchAll for single and paginated REST calls
// - APIClient interface and Client implementation for repository and webhook operations
// - Reconciler for per-repository plan/apply and per-account reconciliation
// - Runner for whole-run orchestration and outcome notification
package github
