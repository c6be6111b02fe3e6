package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"

	"github.com/jmurray2011/parrot/pkg/timeutil"
)

// envKeyReplacer maps nested keys to environment names:
// stream.interval -> PARROT_STREAM_INTERVAL.
var envKeyReplacer = strings.NewReplacer(".", "_")

var durationType = reflect.TypeOf(time.Duration(0))

// durationHook decodes durations from Go duration strings ("250ms") or from
// seconds given as numbers or numeric strings ("0.1", 2).
func durationHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType || from == durationType {
			return data, nil
		}

		switch from.Kind() {
		case reflect.String:
			return timeutil.ParseInterval(data.(string))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			secs, err := cast.ToFloat64E(data)
			if err != nil {
				return nil, err
			}
			return timeutil.SecondsToDuration(secs)
		default:
			return data, nil
		}
	}
}

// boolHook accepts true/false in any letter case as well as 1/0.
func boolHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to.Kind() != reflect.Bool {
			return data, nil
		}
		if s, ok := data.(string); ok {
			return cast.ToBoolE(strings.ToLower(strings.TrimSpace(s)))
		}
		return cast.ToBoolE(data)
	}
}
