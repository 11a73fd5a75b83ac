package registry

import (
	"fmt"

	"github.com/viant/structology/conv"
)

// CreateRequest carries everything needed to construct one monitored
// instance: the full identity, both definition documents and the opaque
// stakeholder list.
type CreateRequest struct {
	ID                string   `json:"id" yaml:"id"`
	ProcessDefinition string   `json:"processDefinition" yaml:"processDefinition"`
	InfoSchema        string   `json:"infoSchema" yaml:"infoSchema"`
	Stakeholders      []string `json:"stakeholders" yaml:"stakeholders"`
}

// Validate checks the request for required fields.
func (r *CreateRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id", ErrMissingField)
	}
	if r.ProcessDefinition == "" {
		return fmt.Errorf("%w: processDefinition", ErrMissingField)
	}
	return nil
}

func newConverter() *conv.Converter {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	return conv.NewConverter(options)
}

// NewCreateRequest builds a typed request from a loosely-typed payload, as
// delivered by transport adapters.
func NewCreateRequest(converter *conv.Converter, payload map[string]interface{}) (*CreateRequest, error) {
	ret := &CreateRequest{}
	if err := converter.Convert(payload, ret); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedDefinition, err)
	}
	return ret, nil
}
