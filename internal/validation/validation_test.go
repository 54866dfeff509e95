package validation

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inner struct {
	P float64 `yaml:"p" validate:"gt=0"`
}

type sample struct {
	K      int    `json:"k" validate:"gte=1"`
	Policy string `yaml:"policy" validate:"omitempty,oneof=retain fail"`
	Addr   string `yaml:"addr" validate:"required"`
	Inner  inner  `yaml:"inner"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{K: 1, Addr: ":80", Inner: inner{P: 1}}))

	err := Struct(sample{K: 0, Policy: "drop", Inner: inner{P: 0}})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	fields := make(map[string]string)
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "must be greater than or equal to 1", fields["k"])
	assert.Equal(t, "must be one of: retain, fail", fields["policy"])
	assert.Equal(t, "is required", fields["addr"])
	assert.Equal(t, "must be greater than 0", fields["inner.p"])
	assert.Contains(t, err.Error(), "k: must be greater than or equal to 1")
}

func TestStruct_NotAStruct(t *testing.T) {
	err := Struct(42)
	require.Error(t, err)
	var verr *Error
	assert.False(t, errors.As(err, &verr))
}
