package app

// CreateDealRequest is the input for opening a new diligence engagement.
type CreateDealRequest struct {
	OrganizationID string
	ClientName     string
	Industry       string
	Notes          string
}

// IngestFileRequest carries one uploaded file into an ingestion pipeline.
type IngestFileRequest struct {
	DealID   string
	Filename string
	Content  []byte

	// Validate enforces the trial balance check on GL files. Ignored for
	// P&L files.
	Validate bool
}
