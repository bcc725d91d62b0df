package xdb

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a database file. JSON is accepted as well as YAML since every
// JSON document is valid YAML.
func Load(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xdb: open: %w", err)
	}
	defer f.Close()

	db, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("xdb: %s: %w", path, err)
	}
	return db, nil
}

// Decode parses and checks a database from r.
func Decode(r io.Reader) (*DB, error) {
	db := New()
	if err := yaml.NewDecoder(r).Decode(db); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if db.SingleData == nil {
		db.SingleData = make(map[string]SingleData)
	}
	if db.DoubleData == nil {
		db.DoubleData = make(map[string]map[string]Relation)
	}
	if db.HubData == nil {
		db.HubData = make(map[string]HubData)
	}
	if err := db.Check(); err != nil {
		return nil, err
	}
	return db, nil
}

// Check verifies the internal consistency of the database: relation shapes
// and hub components that refer to known singles.
func (db *DB) Check() error {
	for a, row := range db.DoubleData {
		for b, rel := range row {
			if err := rel.Validate(); err != nil {
				return fmt.Errorf("double_data[%s][%s]: %w", a, b, err)
			}
		}
	}
	for hub, h := range db.HubData {
		for chain, c := range h.ComponentData {
			if _, ok := db.SingleData[c.SingleName]; !ok {
				return fmt.Errorf("hub_data[%s] chain %s: unknown single_name %q", hub, chain, c.SingleName)
			}
			for name, rel := range c.NConnections {
				if err := rel.Validate(); err != nil {
					return fmt.Errorf("hub_data[%s] chain %s n_connections[%s]: %w", hub, chain, name, err)
				}
			}
			for name, rel := range c.CConnections {
				if err := rel.Validate(); err != nil {
					return fmt.Errorf("hub_data[%s] chain %s c_connections[%s]: %w", hub, chain, name, err)
				}
			}
		}
	}
	return nil
}

// Validate checks that r has a 3x3 rotation and a 3-vector translation.
func (r Relation) Validate() error {
	if len(r.Rot) != 3 {
		return fmt.Errorf("rot has %d rows, want 3", len(r.Rot))
	}
	for i, row := range r.Rot {
		if len(row) != 3 {
			return fmt.Errorf("rot row %d has %d columns, want 3", i, len(row))
		}
	}
	if len(r.Tran) != 3 {
		return fmt.Errorf("tran has %d components, want 3", len(r.Tran))
	}
	return nil
}
