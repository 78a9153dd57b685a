package place

import (
	"encoding/json"
	"fmt"
)

// Placetype is a category of geographic place (country, county, town, ...).
// Read-only reference data held in its own index partition.
type Placetype struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ShortName   string `json:"shortname"`
	Description string `json:"description,omitempty"`
}

// placetype avoids UnmarshalJSON recursion.
type placetype struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	ShortName   string      `json:"shortname"`
	Description string      `json:"description,omitempty"`
}

// UnmarshalJSON tolerates both numeric and string ids; older index builds
// stored the id as a string.
func (p *Placetype) UnmarshalJSON(data []byte) error {
	var raw placetype
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode placetype: %w", err)
	}
	id, err := raw.ID.Int64()
	if err != nil {
		return fmt.Errorf("decode placetype id %q: %w", raw.ID, err)
	}
	p.ID = id
	p.Name = raw.Name
	p.ShortName = raw.ShortName
	p.Description = raw.Description
	return nil
}
