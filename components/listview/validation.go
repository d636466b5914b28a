package listview

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SettingsValidator validates table settings before they are persisted.
type SettingsValidator interface {
	ValidateSetting(setting TableSetting) error
}

const tableSettingSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["table", "version"],
  "properties": {
    "table": {"type": "string", "minLength": 1},
    "columns": {"$ref": "#/$defs/rule"},
    "export_columns": {"$ref": "#/$defs/rule"},
    "sorting": {
      "type": "object",
      "properties": {
        "field": {"type": "string"},
        "direction": {"enum": ["", "asc", "desc"]}
      }
    },
    "pinned_fields": {
      "type": "array",
      "uniqueItems": true,
      "items": {"type": "string", "minLength": 1}
    },
    "per_page": {"type": "integer", "minimum": 0, "maximum": 1000},
    "version": {"type": "integer", "minimum": 0}
  },
  "$defs": {
    "rule": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "enabled", "order"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "enabled": {"type": "boolean"},
          "order": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

// SchemaSettingsValidator checks settings against the table setting JSON
// schema and rejects duplicate column ids.
type SchemaSettingsValidator struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

// NewSchemaSettingsValidator builds a validator backed by jsonschema v5.
func NewSchemaSettingsValidator() *SchemaSettingsValidator {
	return &SchemaSettingsValidator{}
}

// ValidateSetting ensures the setting satisfies the schema.
func (v *SchemaSettingsValidator) ValidateSetting(setting TableSetting) error {
	schema, err := v.compiled()
	if err != nil {
		return err
	}
	data, err := json.Marshal(setting)
	if err != nil {
		return fmt.Errorf("listview: marshal setting %s: %w", setting.Table, err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("listview: normalize setting %s: %w", setting.Table, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("listview: setting for %s failed validation: %w", setting.Table, err)
	}
	if err := uniqueRuleIDs(setting.Columns); err != nil {
		return fmt.Errorf("listview: setting for %s: %w", setting.Table, err)
	}
	if err := uniqueRuleIDs(setting.ExportColumns); err != nil {
		return fmt.Errorf("listview: export setting for %s: %w", setting.Table, err)
	}
	return nil
}

func (v *SchemaSettingsValidator) compiled() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("table_setting.json", strings.NewReader(tableSettingSchema)); err != nil {
			v.err = fmt.Errorf("listview: load settings schema: %w", err)
			return
		}
		v.schema, v.err = compiler.Compile("table_setting.json")
		if v.err != nil {
			v.err = fmt.Errorf("listview: compile settings schema: %w", v.err)
		}
	})
	return v.schema, v.err
}

func uniqueRuleIDs(rule []ColumnRule) error {
	seen := make(map[string]struct{}, len(rule))
	for _, r := range rule {
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("duplicate column id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
