// Package database provides connection management for document databases,
// configuration loading, logging, health checks and error classification.
//
// Two backends implement the Database and Collection handles: MongoDB
// through the official driver, and a document store kept in PostgreSQL,
// MySQL or SQLite tables through Bun. Both accept the same types.Filter
// values and bson-tagged documents.
package database
