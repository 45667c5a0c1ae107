package domain

import "encoding/json"

// UserProfile holds the static identity attributes for a known user.
// Profiles are loaded once at startup and are read-only afterwards.
type UserProfile struct {
	Name string
	// Attributes keeps the full profile object, including Name, so callers
	// can surface fields the service does not model explicitly.
	Attributes map[string]any
}

// UnmarshalJSON accepts an arbitrary profile object and lifts the display
// name out of it.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		return err
	}
	p.Attributes = attrs
	if name, ok := attrs["name"].(string); ok {
		p.Name = name
	}
	return nil
}

// MarshalJSON writes the profile back as its attribute object.
func (p UserProfile) MarshalJSON() ([]byte, error) {
	attrs := p.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	if p.Name != "" {
		merged := make(map[string]any, len(attrs)+1)
		for k, v := range attrs {
			merged[k] = v
		}
		merged["name"] = p.Name
		attrs = merged
	}
	return json.Marshal(attrs)
}
