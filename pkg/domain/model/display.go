package model

// DisplayOptions controls how stored records are rendered
type DisplayOptions struct {
	Limit         int // <= 0 means unbounded
	ShowTitle     bool
	ShowDate      bool
	ShowDownloads bool
}

// RecordQuery selects stored records, most recent first
type RecordQuery struct {
	Classification Classification
	Limit          int // <= 0 means unbounded
}
