package backend

import (
	"context"

	"github.com/goliatone/go-listview/components/listview"
)

// Client is the union of backend calls list views rely on.
type Client interface {
	listview.Source
	listview.ExportRecorder
	CompanyAPI
}

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)

	_ IPAddressAPI = (*HTTPClient)(nil)

	_ listview.SettingsStore = (*CompanySettingsStore)(nil)
)

// IPAddressAPI manages the company allow list.
type IPAddressAPI interface {
	IPAddresses(ctx context.Context) ([]IPAddress, error)
	CreateIPAddress(ctx context.Context, ip IPAddress) (IPAddress, error)
	UpdateIPAddress(ctx context.Context, ip IPAddress) (IPAddress, error)
	DeleteIPAddress(ctx context.Context, id string) error
}
