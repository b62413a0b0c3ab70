// Package models holds the GORM row types of the ledger schema and their
// conversions to domain types. Domain packages never see gorm tags.
//
// migrations/ is the schema of record. The tags here mirror it closely
// enough for tests to AutoMigrate an SQLite database.
package models
