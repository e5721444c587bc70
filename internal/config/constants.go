package config

const (
	// DefaultDatabasePath is the default path of the run ledger database
	DefaultDatabasePath = "./querylog.db"

	DefaultOutputDir     = "./generated_csvs"
	DefaultFolderSuffix  = "generated_csvs"
	DefaultDelimiter     = ";"
	DefaultCategoryField = "querytype"
	DefaultBatchSize     = 500
)
