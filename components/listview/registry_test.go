package listview

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryHoldsDefaultTables(t *testing.T) {
	reg := NewRegistry()
	names := make([]string, 0)
	for _, def := range reg.Tables() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"bets", "ip_addresses", "members", "roles"}, names)

	bets, ok := reg.Table("bets")
	require.True(t, ok)
	assert.Equal(t, "/bets", bets.Resource)
	assert.Equal(t, 50, bets.DefaultPerPage)
	assert.Equal(t, Sort{Field: "created_at", Direction: SortDesc}, bets.DefaultSort)
}

func TestRegistryNormalizesDefinitions(t *testing.T) {
	reg := NewEmptyRegistry()
	columns := []Column{{ID: "id"}, {ID: "name", LabelLocalized: map[string]string{"ES": "Nombre"}}}
	require.NoError(t, reg.RegisterTable(TableDefinition{
		Name:     "agents",
		Resource: "reports/agents",
		Columns:  columns,
		Filters:  []FilterSpec{{Key: "deskId"}},
	}))
	def, ok := reg.Table("agents")
	require.True(t, ok)
	assert.Equal(t, "/reports/agents", def.Resource)
	assert.Equal(t, "agents", def.ItemsKey)
	assert.Equal(t, defaultPerPage, def.DefaultPerPage)
	assert.Equal(t, KindText, def.Columns[0].Kind)
	assert.Equal(t, "desk_id", def.Filters[0].Key)
	assert.Equal(t, FilterText, def.Filters[0].Kind)
	assert.Equal(t, "Nombre", def.Columns[1].LabelFor("es"))
	assert.Empty(t, columns[0].Kind, "caller slices must not be modified")
}

func TestRegistryRejectsInvalidDefinitions(t *testing.T) {
	reg := NewEmptyRegistry()
	assert.Error(t, reg.RegisterTable(TableDefinition{Resource: "/x", Columns: []Column{{ID: "id"}}}))
	assert.Error(t, reg.RegisterTable(TableDefinition{Name: "x", Columns: []Column{{ID: "id"}}}))
	assert.Error(t, reg.RegisterTable(TableDefinition{Name: "x", Resource: "/x"}))
	assert.Error(t, reg.RegisterTable(TableDefinition{Name: "x", Resource: "/x", Columns: []Column{{ID: "id"}, {ID: "id"}}}))
}

func TestRegisterTableHook(t *testing.T) {
	RegisterTableHook(func(reg *Registry) error {
		return reg.RegisterTable(TableDefinition{Name: "hooked_table", Resource: "/hooked", Columns: []Column{{ID: "id"}}})
	})
	reg := NewRegistry()
	_, ok := reg.Table("hooked_table")
	assert.True(t, ok)
}

func TestDecodeManifest(t *testing.T) {
	const payload = `
version: 1
name: reports
tables:
  - name: desk_report
    resource: /reports/desks
    items_key: desks
    default_sort:
      field: ftd_count
      direction: desc
    columns:
      - id: desk
        enabled: true
      - id: ftd_count
        kind: number
        enabled: true
        capability: finance.view
    filters:
      - key: desk
        kind: list
`
	doc, err := DecodeManifest(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	table := doc.Tables[0]
	assert.Equal(t, "desk_report", table.Name)
	assert.Equal(t, "desks", table.ItemsKey)
	assert.Equal(t, KindNumber, table.Columns[1].Kind)
	assert.Equal(t, CapViewFinance, table.Columns[1].Capability)
	assert.Equal(t, SortDesc, table.DefaultSort.Direction)
}

func TestDecodeManifestRejectsUnknownFields(t *testing.T) {
	_, err := DecodeManifest(strings.NewReader("version: 1\ntables: []\nwidgets: []\n"))
	assert.Error(t, err)

	_, err = DecodeManifest(strings.NewReader("version: 2\ntables: []\n"))
	assert.Error(t, err)

	_, err = DecodeManifest(strings.NewReader(""))
	assert.Error(t, err)
}

func TestManifestRoundTripThroughFile(t *testing.T) {
	doc := &TableManifestDocument{
		Version: ManifestVersion,
		Tables: []TableDefinition{{
			Name:     "agents",
			Resource: "/reports/agents",
			Columns:  []Column{{ID: "agent_name", Enabled: true}},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeManifest(&buf, doc))

	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	reg := NewEmptyRegistry()
	loaded, err := reg.LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded.Source)
	def, ok := reg.Table("agents")
	require.True(t, ok)
	assert.Equal(t, "agent_name", def.Columns[0].ID)
}
