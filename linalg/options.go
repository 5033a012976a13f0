package linalg

import (
	"github.com/spf13/viper"
)

// Options is a prefixed view of an options database. Nested solvers
// compose prefixes, so the pc of the ksp inside "fdm_" reads "fdm_ksp_pc_type".
type Options struct {
	v      *viper.Viper
	prefix string
}

// NewOptions wraps v, or a fresh database when v is nil
func NewOptions(v *viper.Viper, prefix string) *Options {
	if v == nil {
		v = viper.New()
	}
	return &Options{v: v, prefix: prefix}
}

func (o *Options) Prefix() string { return o.prefix }

func (o *Options) Viper() *viper.Viper { return o.v }

// Sub returns the options under the appended prefix
func (o *Options) Sub(prefix string) *Options {
	return &Options{v: o.v, prefix: o.prefix + prefix}
}

func (o *Options) key(name string) string { return o.prefix + name }

func (o *Options) Set(name string, value interface{}) {
	o.v.Set(o.key(name), value)
}

func (o *Options) IsSet(name string) bool { return o.v.IsSet(o.key(name)) }

func (o *Options) GetString(name, def string) string {
	if !o.IsSet(name) {
		return def
	}
	return o.v.GetString(o.key(name))
}

func (o *Options) GetFloat64(name string, def float64) float64 {
	if !o.IsSet(name) {
		return def
	}
	return o.v.GetFloat64(o.key(name))
}

func (o *Options) GetInt(name string, def int) int {
	if !o.IsSet(name) {
		return def
	}
	return o.v.GetInt(o.key(name))
}

func (o *Options) GetBool(name string, def bool) bool {
	if !o.IsSet(name) {
		return def
	}
	return o.v.GetBool(o.key(name))
}
