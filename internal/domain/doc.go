// Package domain defines the core business entities of the learning
// progression engine: learning sessions, session events, mark results,
// and the derived performance views. Entities validate themselves on
// construction; persistence and policy live elsewhere.
package domain
