package sync

import (
	"fmt"

	"github.com/d5/tengo/v2"
)

// TengoResolver runs custom-transform scripts. The script sees the
// source value as `value` and the whole source record as `record`, and
// must assign its result to `output`:
//
//	output := value * record.exchange_rate
type TengoResolver struct{}

func NewTengoResolver() *TengoResolver {
	return &TengoResolver{}
}

func (r *TengoResolver) Resolve(script string, value interface{}, record map[string]interface{}) (interface{}, error) {
	s := tengo.NewScript([]byte(script))

	if err := s.Add("value", value); err != nil {
		return nil, fmt.Errorf("failed to bind value: %w", err)
	}
	if err := s.Add("record", record); err != nil {
		return nil, fmt.Errorf("failed to bind record: %w", err)
	}

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}
	if err := compiled.Run(); err != nil {
		return nil, fmt.Errorf("failed to run script: %w", err)
	}

	out := compiled.Get("output")
	if out.ValueType() == "undefined" {
		return nil, fmt.Errorf("script did not assign output")
	}
	return out.Value(), nil
}
