package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrMagicGroup is returned when a write targets a system-managed Metabase
// group.
var ErrMagicGroup = errors.New("backend: magic groups are read-only")

// IPAddress is an allow-listed company address.
type IPAddress struct {
	ID          string `json:"id,omitempty"`
	Address     string `json:"ip"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// IPAddresses lists `GET /company/ip-addresses`.
func (c *HTTPClient) IPAddresses(ctx context.Context) ([]IPAddress, error) {
	var resp struct {
		Items []IPAddress `json:"ip_addresses"`
	}
	if err := c.do(ctx, http.MethodGet, "/company/ip-addresses", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateIPAddress posts a new address.
func (c *HTTPClient) CreateIPAddress(ctx context.Context, ip IPAddress) (IPAddress, error) {
	var out IPAddress
	if err := c.do(ctx, http.MethodPost, "/company/ip-addresses", nil, ip, &out); err != nil {
		return IPAddress{}, err
	}
	return out, nil
}

// UpdateIPAddress patches an address by id.
func (c *HTTPClient) UpdateIPAddress(ctx context.Context, ip IPAddress) (IPAddress, error) {
	if ip.ID == "" {
		return IPAddress{}, fmt.Errorf("backend: ip address id is required")
	}
	var out IPAddress
	if err := c.do(ctx, http.MethodPatch, "/company/ip-addresses/"+url.PathEscape(ip.ID), nil, ip, &out); err != nil {
		return IPAddress{}, err
	}
	return out, nil
}

// DeleteIPAddress removes an address by id.
func (c *HTTPClient) DeleteIPAddress(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/company/ip-addresses/"+url.PathEscape(id), nil, nil, nil)
}

// MetabaseGroup is a report permission group. Magic groups have system
// managed membership.
type MetabaseGroup struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Magic  bool              `json:"is_magic"`
	Access map[string]string `json:"access,omitempty"`
}

// GroupPatch is one of enable_all, disable_all or a single table grant.
type GroupPatch struct {
	EnableAll  bool   `json:"enable_all,omitempty"`
	DisableAll bool   `json:"disable_all,omitempty"`
	TableName  string `json:"table_name,omitempty"`
	AccessType string `json:"access_type,omitempty"`
}

func (p GroupPatch) validate() error {
	set := 0
	if p.EnableAll {
		set++
	}
	if p.DisableAll {
		set++
	}
	if p.TableName != "" {
		set++
		if p.AccessType == "" {
			return fmt.Errorf("backend: access type is required for table %q", p.TableName)
		}
	}
	if set != 1 {
		return fmt.Errorf("backend: group patch needs exactly one of enable_all, disable_all or table_name")
	}
	return nil
}

// MetabaseGroups lists `GET /metabase/groups`.
func (c *HTTPClient) MetabaseGroups(ctx context.Context) ([]MetabaseGroup, error) {
	var resp struct {
		Groups []MetabaseGroup `json:"groups"`
	}
	if err := c.do(ctx, http.MethodGet, "/metabase/groups", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// MetabaseGroup loads one group.
func (c *HTTPClient) MetabaseGroup(ctx context.Context, id string) (MetabaseGroup, error) {
	var out MetabaseGroup
	if err := c.do(ctx, http.MethodGet, "/metabase/groups/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return MetabaseGroup{}, err
	}
	return out, nil
}

// PatchMetabaseGroup updates permissions. Magic groups are rejected before
// any request is sent.
func (c *HTTPClient) PatchMetabaseGroup(ctx context.Context, group MetabaseGroup, patch GroupPatch) (MetabaseGroup, error) {
	if group.Magic {
		return MetabaseGroup{}, ErrMagicGroup
	}
	if err := patch.validate(); err != nil {
		return MetabaseGroup{}, err
	}
	var out MetabaseGroup
	if err := c.do(ctx, http.MethodPatch, "/metabase/groups/"+url.PathEscape(group.ID), nil, patch, &out); err != nil {
		return MetabaseGroup{}, err
	}
	return out, nil
}

// CallProfile configures a call-system integration (Twilio, Voiso, ...).
type CallProfile struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"name"`
	ProviderType string         `json:"provider_type"`
	IsDefault    bool           `json:"is_default"`
	Settings     map[string]any `json:"settings,omitempty"`
}

// UpdateCallProfile sends `PATCH /call-profiles/{id}`.
func (c *HTTPClient) UpdateCallProfile(ctx context.Context, profile CallProfile) (CallProfile, error) {
	if profile.ID == "" {
		return CallProfile{}, fmt.Errorf("backend: call profile id is required")
	}
	body := CallProfile{
		Name:         profile.Name,
		ProviderType: profile.ProviderType,
		IsDefault:    profile.IsDefault,
		Settings:     profile.Settings,
	}
	var out CallProfile
	if err := c.do(ctx, http.MethodPatch, "/call-profiles/"+url.PathEscape(profile.ID), nil, body, &out); err != nil {
		return CallProfile{}, err
	}
	return out, nil
}
