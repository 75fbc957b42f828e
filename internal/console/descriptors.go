package console

import (
	"context"
	"strconv"

	"github.com/quartermaster-am/quartermaster/internal/api"
	"github.com/quartermaster-am/quartermaster/internal/table"
)

// BuildDescriptors wires the five resource screens against the remote
// API. Select fields resolve their choices through the typed services so
// relations always offer live data.
func BuildDescriptors(client *api.Client, svcs *api.Services) []*Descriptor {
	categoryOptions := resourceOptions(client, "/AssetCategories", "categoryID", "categoryName")
	departmentOptions := resourceOptions(client, "/Departments", "departmentID", "departmentName")
	roomOptions := resourceOptions(client, "/Rooms", "roomID", "roomName")
	unitOptions := func(ctx context.Context) ([]Option, error) {
		units, err := svcs.Assets.Units(ctx)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(units))
		for _, u := range units {
			opts = append(opts, Option{Value: u, Label: u})
		}
		return opts, nil
	}

	return []*Descriptor{
		{
			Slug:     "assets",
			Title:    "Assets",
			Singular: "asset",
			IDField:  "assetID",
			Columns: []table.Column[map[string]any]{
				{Header: "Code", Width: 110, Value: cell("assetCode")},
				{Header: "Name", Width: 220, Value: cell("assetName")},
				{Header: "Unit", Width: 80, Value: cell("unit")},
				{Header: "Quantity", Width: 90, Value: cell("quantity")},
				{Header: "Unit price", Width: 110, Value: cell("unitPrice")},
				{Header: "Brand", Width: 120, Value: cell("brand")},
				{Header: "Purchased", Width: 110, Value: dateCell("purchaseDate")},
			},
			Fields: []Field{
				{Name: "assetCode", Label: "Asset code", Kind: FieldText, Required: true},
				{Name: "assetName", Label: "Asset name", Kind: FieldText, Required: true},
				{Name: "categoryID", Label: "Category", Kind: FieldSelect, Required: true, Options: categoryOptions},
				{Name: "unit", Label: "Unit", Kind: FieldSelect, Required: true, Options: unitOptions},
				{Name: "quantity", Label: "Quantity", Kind: FieldNumber, Required: true},
				{Name: "unitPrice", Label: "Unit price", Kind: FieldDecimal, Required: true},
				{Name: "brand", Label: "Brand", Kind: FieldText},
				{Name: "model", Label: "Model", Kind: FieldText},
				{Name: "specification", Label: "Specification", Kind: FieldTextarea},
				{Name: "countryOfOrigin", Label: "Country of origin", Kind: FieldText},
				{Name: "purchaseDate", Label: "Purchase date", Kind: FieldDate},
				{Name: "description", Label: "Description", Kind: FieldTextarea},
			},
			Resource: api.NewResource[map[string]any](client, "/Assets"),
		},
		{
			Slug:     "categories",
			Title:    "Asset categories",
			Singular: "category",
			IDField:  "categoryID",
			Columns: []table.Column[map[string]any]{
				{Header: "Name", Width: 240, Value: cell("categoryName")},
				{Header: "Description", Width: 360, Value: cell("description")},
			},
			Fields: []Field{
				{Name: "categoryName", Label: "Category name", Kind: FieldText, Required: true},
				{Name: "description", Label: "Description", Kind: FieldTextarea},
			},
			Resource: api.NewResource[map[string]any](client, "/AssetCategories"),
		},
		{
			Slug:     "departments",
			Title:    "Departments",
			Singular: "department",
			IDField:  "departmentID",
			Columns: []table.Column[map[string]any]{
				{Header: "Code", Width: 120, Value: cell("departmentCode")},
				{Header: "Name", Width: 320, Value: cell("departmentName")},
			},
			Fields: []Field{
				{Name: "departmentCode", Label: "Department code", Kind: FieldText, Required: true},
				{Name: "departmentName", Label: "Department name", Kind: FieldText, Required: true},
			},
			Resource: api.NewResource[map[string]any](client, "/Departments"),
		},
		{
			Slug:     "rooms",
			Title:    "Rooms",
			Singular: "room",
			IDField:  "roomID",
			Columns: []table.Column[map[string]any]{
				{Header: "Name", Width: 240, Value: cell("roomName")},
				{Header: "Department", Width: 120, Value: cell("departmentID")},
				{Header: "Description", Width: 320, Value: cell("description")},
			},
			Fields: []Field{
				{Name: "roomName", Label: "Room name", Kind: FieldText, Required: true},
				{Name: "departmentID", Label: "Department", Kind: FieldSelect, Required: true, Options: departmentOptions},
				{Name: "description", Label: "Description", Kind: FieldTextarea},
			},
			Resource: api.NewResource[map[string]any](client, "/Rooms"),
		},
		{
			Slug:     "handovers",
			Title:    "Handovers",
			Singular: "handover",
			IDField:  "handoverID",
			Columns: []table.Column[map[string]any]{
				{Header: "Room", Width: 100, Value: cell("roomID")},
				{Header: "Date", Width: 120, Value: dateCell("handoverDate")},
				{Header: "Delivered by", Width: 180, Value: cell("deliveredBy")},
				{Header: "Received by", Width: 180, Value: cell("receivedBy")},
				{Header: "Notes", Width: 240, Value: cell("notes")},
			},
			Fields: []Field{
				{Name: "roomID", Label: "Room", Kind: FieldSelect, Required: true, Options: roomOptions},
				{Name: "handoverDate", Label: "Handover date", Kind: FieldDate, Required: true},
				{Name: "deliveredBy", Label: "Delivered by", Kind: FieldText, Required: true},
				{Name: "receivedBy", Label: "Received by", Kind: FieldText, Required: true},
				{Name: "notes", Label: "Notes", Kind: FieldTextarea},
			},
			Resource: api.NewResource[map[string]any](client, "/Handovers"),
		},
	}
}

// resourceOptions builds a select source from a remote collection,
// using one property as the value and another as the label.
func resourceOptions(client *api.Client, endpoint, valueField, labelField string) func(ctx context.Context) ([]Option, error) {
	res := api.NewResource[map[string]any](client, endpoint)
	return func(ctx context.Context) ([]Option, error) {
		rows, err := res.List(ctx)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(rows))
		for _, row := range rows {
			opts = append(opts, Option{
				Value: strconv.FormatInt(int64Of(row[valueField]), 10),
				Label: stringOf(row[labelField]),
			})
		}
		return opts, nil
	}
}
