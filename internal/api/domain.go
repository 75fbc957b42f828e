package api

// Entity records owned by the remote asset API. The client never holds
// authoritative state, only snapshots refreshed after each mutation, so the
// JSON field names follow the API wire format verbatim.

// Asset is a tracked physical asset.
type Asset struct {
	AssetID         int64   `json:"assetID"`
	AssetCode       string  `json:"assetCode"`
	AssetName       string  `json:"assetName"`
	CategoryID      int64   `json:"categoryID"`
	Unit            string  `json:"unit"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unitPrice"`
	Brand           string  `json:"brand"`
	Model           string  `json:"model"`
	Specification   string  `json:"specification"`
	CountryOfOrigin string  `json:"countryOfOrigin"`
	PurchaseDate    string  `json:"purchaseDate"`
	Description     string  `json:"description"`
}

// AssetCategory groups assets.
type AssetCategory struct {
	CategoryID   int64  `json:"categoryID"`
	CategoryName string `json:"categoryName"`
	Description  string `json:"description"`
}

// Department owns rooms.
type Department struct {
	DepartmentID   int64  `json:"departmentID"`
	DepartmentCode string `json:"departmentCode"`
	DepartmentName string `json:"departmentName"`
}

// Room is a physical location inside a department.
type Room struct {
	RoomID       int64  `json:"roomID"`
	RoomName     string `json:"roomName"`
	DepartmentID int64  `json:"departmentID"`
	Description  string `json:"description"`
}

// RoomAsset associates an asset instance with a room.
type RoomAsset struct {
	RoomAssetID      int64  `json:"roomAssetID"`
	RoomID           int64  `json:"roomID"`
	AssetID          int64  `json:"assetID"`
	SerialNumber     string `json:"serialNumber"`
	CurrentCondition string `json:"currentCondition"`
	Remarks          string `json:"remarks"`
}

// Handover records a transfer of custody of assets in a room.
type Handover struct {
	HandoverID   int64  `json:"handoverID"`
	RoomID       int64  `json:"roomID"`
	HandoverDate string `json:"handoverDate"`
	DeliveredBy  string `json:"deliveredBy"`
	ReceivedBy   string `json:"receivedBy"`
	Notes        string `json:"notes"`
}

// HandoverDetail is a per-asset line of a handover.
type HandoverDetail struct {
	HandoverDetailID   int64  `json:"handoverDetailID"`
	HandoverID         int64  `json:"handoverID"`
	AssetID            int64  `json:"assetID"`
	Quantity           int    `json:"quantity"`
	ConditionAtHandover string `json:"conditionAtHandover"`
	Remarks            string `json:"remarks"`
}
