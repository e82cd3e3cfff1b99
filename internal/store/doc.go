// Package store provides abstractions for data persistence: the DBTX
// database facade, the store interfaces for sessions, session events, and
// users, the shared error taxonomy, and the transaction helper.
package store
