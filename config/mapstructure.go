package config

import (
	"github.com/mitchellh/mapstructure"
)

// decode maps a shadow map[string]interface{} (produced by go-toml/v2) onto
// a typed Config using mapstructure: a "shadow map then mapstructure"
// two-stage decode. No config field decodes to an os.Signal (spyrun has no
// configurable kill signal), so no signal decode hook is composed in here.
func decode(shadow map[string]interface{}, out *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(shadow)
}
