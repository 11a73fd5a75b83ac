package model

import (
	"encoding/xml"
	"fmt"
)

// InfoSchema is the information-model schema, an XSD subset describing the
// externally updatable entities sentries may query.
type InfoSchema struct {
	XMLName  xml.Name      `xml:"schema"`
	Elements []InfoElement `xml:"element"`
}

// InfoElement declares one information entity with its attributes. Pub/Sub
// mark whether the entity publishes or subscribes on the collaborating
// transport; the engine carries them as opaque flags.
type InfoElement struct {
	Name       string          `xml:"name,attr"`
	Pub        bool            `xml:"pub,attr"`
	Sub        bool            `xml:"sub,attr"`
	Attributes []InfoAttribute `xml:"complexType>attribute"`
}

// InfoAttribute declares a typed attribute of an information entity.
type InfoAttribute struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
	Use  string `xml:"use,attr"`
}

// ParseInfoSchema decodes an information-model schema document.
func ParseInfoSchema(data []byte) (*InfoSchema, error) {
	ret := &InfoSchema{}
	if err := xml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to parse information model: %w", err)
	}
	return ret, nil
}

// Validate reports structural issues with the schema.
func (s *InfoSchema) Validate() []error {
	var issues []error
	seen := map[string]bool{}
	for _, e := range s.Elements {
		if e.Name == "" {
			issues = append(issues, fmt.Errorf("information entity without name"))
			continue
		}
		if seen[e.Name] {
			issues = append(issues, fmt.Errorf("duplicate information entity %s", e.Name))
		}
		seen[e.Name] = true
		attrs := map[string]bool{}
		for _, a := range e.Attributes {
			if a.Name == "" {
				issues = append(issues, fmt.Errorf("entity %s: attribute without name", e.Name))
				continue
			}
			if attrs[a.Name] {
				issues = append(issues, fmt.Errorf("entity %s: duplicate attribute %s", e.Name, a.Name))
			}
			attrs[a.Name] = true
		}
	}
	return issues
}
