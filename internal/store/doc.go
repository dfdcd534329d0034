// package store provides the transactional persistence layer for the
// Tautulli cache.
//
// A Store owns a single database handle and at most one open write
// transaction. While a transaction is open every write routes through it,
// so a failed sync rolls back without leaving partial rows. Read queries
// always run against the pooled handle and never observe the open
// transaction.
package store
