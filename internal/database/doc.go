// Package database provides the PostgreSQL connection pool for the routing journal.
//
// The journal is optional; without it the web server never opens a database connection.
package database
