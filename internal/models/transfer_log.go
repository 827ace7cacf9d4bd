// internal/models/transfer_log.go
package models

// TransferLogTable is the unprefixed name of the audit table.
const TransferLogTable = "local_ehealthapi"

// TransferLogEntry is written once per successful transfer and never updated.
type TransferLogEntry struct {
	ID           int64 `json:"id" db:"id"`
	UserID       int64 `json:"userid" db:"userid"`
	TimeCreated  int64 `json:"timecreated" db:"timecreated"`
	CompletionID int64 `json:"completionid" db:"completionid"`
}
