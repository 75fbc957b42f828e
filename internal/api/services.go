package api

import (
	"context"
	"net/http"
	"strconv"
)

// AssetService maps to the /Assets endpoints.
type AssetService struct {
	Resource[Asset]
}

// NewAssetService constructs the asset service.
func NewAssetService(client *Client) *AssetService {
	return &AssetService{Resource: NewResource[Asset](client, "/Assets")}
}

// ByCode fetches an asset by its asset code.
func (s *AssetService) ByCode(ctx context.Context, code string) (Asset, error) {
	raw, err := s.Client().Request(ctx, http.MethodGet, "/Assets/by-code/"+code, nil)
	if err != nil {
		return Asset{}, err
	}
	return decode[Asset](raw)
}

// ByCategory lists the assets belonging to a category.
func (s *AssetService) ByCategory(ctx context.Context, categoryID int64) ([]Asset, error) {
	raw, err := s.Client().Request(ctx, http.MethodGet, "/Assets/by-category/"+strconv.FormatInt(categoryID, 10), nil)
	if err != nil {
		return nil, err
	}
	return decode[[]Asset](raw)
}

// Units lists the available measurement units.
func (s *AssetService) Units(ctx context.Context) ([]string, error) {
	raw, err := s.Client().Request(ctx, http.MethodGet, "/Assets/units", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]string](raw)
}

// AdjustQuantity applies a positive or negative quantity delta.
func (s *AssetService) AdjustQuantity(ctx context.Context, id int64, delta int) (Asset, error) {
	raw, err := s.Client().Request(ctx, http.MethodPatch, s.idPath(id)+"/quantity", map[string]int{"quantityChange": delta})
	if err != nil {
		return Asset{}, err
	}
	return decode[Asset](raw)
}

// CategoryService maps to the /AssetCategories endpoints.
type CategoryService struct {
	Resource[AssetCategory]
}

// NewCategoryService constructs the category service.
func NewCategoryService(client *Client) *CategoryService {
	return &CategoryService{Resource: NewResource[AssetCategory](client, "/AssetCategories")}
}

// Assets lists the assets in a category via the category sub-resource.
func (s *CategoryService) Assets(ctx context.Context, categoryID int64) ([]Asset, error) {
	raw, err := s.Client().Request(ctx, http.MethodGet, s.idPath(categoryID)+"/assets", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]Asset](raw)
}

// DepartmentService maps to the /Departments endpoints.
type DepartmentService struct {
	Resource[Department]
}

// NewDepartmentService constructs the department service.
func NewDepartmentService(client *Client) *DepartmentService {
	return &DepartmentService{Resource: NewResource[Department](client, "/Departments")}
}

// Rooms lists the rooms of a department.
func (s *DepartmentService) Rooms(ctx context.Context, departmentID int64) ([]Room, error) {
	raw, err := s.Client().Request(ctx, http.MethodGet, s.idPath(departmentID)+"/rooms", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]Room](raw)
}

// RoomService maps to the /Rooms endpoints.
type RoomService struct {
	Resource[Room]
}

// NewRoomService constructs the room service.
func NewRoomService(client *Client) *RoomService {
	return &RoomService{Resource: NewResource[Room](client, "/Rooms")}
}

// Assets lists the asset associations of a room.
func (s *RoomService) Assets(ctx context.Context, roomID int64) ([]RoomAsset, error) {
	raw, err := s.Client().Request(ctx, http.MethodGet, s.idPath(roomID)+"/assets", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]RoomAsset](raw)
}

// AddAsset associates an asset with a room.
func (s *RoomService) AddAsset(ctx context.Context, roomID int64, payload any) (RoomAsset, error) {
	raw, err := s.Client().Request(ctx, http.MethodPost, s.idPath(roomID)+"/assets", payload)
	if err != nil {
		return RoomAsset{}, err
	}
	return decode[RoomAsset](raw)
}

// RemoveAsset removes an asset association from a room.
func (s *RoomService) RemoveAsset(ctx context.Context, roomID, assetID int64) error {
	_, err := s.Client().Request(ctx, http.MethodDelete, s.idPath(roomID)+"/assets/"+strconv.FormatInt(assetID, 10), nil)
	return err
}

// HandoverService maps to the /Handovers endpoints and the details
// sub-resource.
type HandoverService struct {
	Resource[Handover]
}

// NewHandoverService constructs the handover service.
func NewHandoverService(client *Client) *HandoverService {
	return &HandoverService{Resource: NewResource[Handover](client, "/Handovers")}
}

// ByRoom lists the handovers recorded for a room.
func (s *HandoverService) ByRoom(ctx context.Context, roomID int64) ([]Handover, error) {
	raw, err := s.Client().Request(ctx, http.MethodGet, "/Handovers/by-room/"+strconv.FormatInt(roomID, 10), nil)
	if err != nil {
		return nil, err
	}
	return decode[[]Handover](raw)
}

// Details lists the detail lines of a handover.
func (s *HandoverService) Details(ctx context.Context, handoverID int64) ([]HandoverDetail, error) {
	raw, err := s.Client().Request(ctx, http.MethodGet, s.idPath(handoverID)+"/details", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]HandoverDetail](raw)
}

// AddDetail appends a detail line to a handover.
func (s *HandoverService) AddDetail(ctx context.Context, handoverID int64, payload any) (HandoverDetail, error) {
	raw, err := s.Client().Request(ctx, http.MethodPost, s.idPath(handoverID)+"/details", payload)
	if err != nil {
		return HandoverDetail{}, err
	}
	return decode[HandoverDetail](raw)
}

// Detail fetches a single detail line.
func (s *HandoverService) Detail(ctx context.Context, detailID int64) (HandoverDetail, error) {
	raw, err := s.Client().Request(ctx, http.MethodGet, "/Handovers/details/"+strconv.FormatInt(detailID, 10), nil)
	if err != nil {
		return HandoverDetail{}, err
	}
	return decode[HandoverDetail](raw)
}

// UpdateDetail replaces a detail line.
func (s *HandoverService) UpdateDetail(ctx context.Context, detailID int64, payload any) (HandoverDetail, error) {
	raw, err := s.Client().Request(ctx, http.MethodPut, "/Handovers/details/"+strconv.FormatInt(detailID, 10), payload)
	if err != nil {
		return HandoverDetail{}, err
	}
	return decode[HandoverDetail](raw)
}

// DeleteDetail removes a detail line.
func (s *HandoverService) DeleteDetail(ctx context.Context, detailID int64) error {
	_, err := s.Client().Request(ctx, http.MethodDelete, "/Handovers/details/"+strconv.FormatInt(detailID, 10), nil)
	return err
}

// Services bundles one service per entity for handler wiring.
type Services struct {
	Assets      *AssetService
	Categories  *CategoryService
	Departments *DepartmentService
	Rooms       *RoomService
	Handovers   *HandoverService
}

// NewServices constructs the full service set over one client.
func NewServices(client *Client) *Services {
	return &Services{
		Assets:      NewAssetService(client),
		Categories:  NewCategoryService(client),
		Departments: NewDepartmentService(client),
		Rooms:       NewRoomService(client),
		Handovers:   NewHandoverService(client),
	}
}
