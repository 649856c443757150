package hook

import (
	"reflect"
	"regexp"

	"github.com/mitchellh/mapstructure"
)

var (
	regexpType = reflect.TypeOf(&regexp.Regexp{})
)

// Regexp compiles strings into *regexp.Regexp. An empty string decodes to nil, so Regexp must be
// the last hook of a composition.
func Regexp() mapstructure.DecodeHookFuncType {
	return func(in reflect.Type, out reflect.Type, val interface{}) (interface{}, error) {
		if in.Kind() == reflect.String && out == regexpType {
			if val.(string) == "" {
				return nil, nil
			}
			return regexp.Compile(val.(string))
		}
		return val, nil
	}
}
