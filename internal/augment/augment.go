// internal/augment/augment.go
package augment

import (
	"errors"
	"io"
	"reflect"
)

// Config for the modality collaborators.
type Config struct {
	EEGNoise float64 `yaml:"eeg_noise"`
	FMRIGain float64 `yaml:"fmri_gain"`
	Seed     int64   `yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		EEGNoise: 0.1,
		FMRIGain: 0.2,
		Seed:     1,
	}
}

// closerOf returns v as an io.Closer, or nil when v cannot be closed.
func closerOf(v any) io.Closer {
	cl, _ := v.(io.Closer)
	return cl
}

// closeAll closes every closer and joins their errors. Nil interfaces and
// typed nil pointers are skipped.
func closeAll(closers ...io.Closer) error {
	var errs []error
	for _, c := range closers {
		if isNil(c) {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isNil(c io.Closer) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
