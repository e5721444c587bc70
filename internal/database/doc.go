// Package database provides the run ledger storage.
//
// database.go opens the SQLite connection and migrates the schema. Domain
// queries live in sub-packages, each with a Repository built from *gorm.DB:
//
//	database/
//	├── database.go   # Connection setup and migrations
//	└── runs/         # Ingest runs and their per-category results
//
// Usage:
//
//	db, err := database.NewDatabase("./querylog.db")
//	repo := runs.NewRepository(db.DB)
//	recent, total, err := repo.List(20, 0)
package database
