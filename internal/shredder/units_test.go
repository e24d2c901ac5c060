package shredder

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbsacct/internal/model"
)

func TestParseMemory(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10mb", 10240},
		{"2gb", 2097152},
		{"500kb", 500},
		{"5000", 5000},
		{"999b", 1},
		{"0b", 1},
		{"10MB", 10}, // unit match is case-sensitive
		{"7tb", 7},   // unknown units are not scaled
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMemory(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMemory_Invalid(t *testing.T) {
	for _, in := range []string{"", "mb", "kb"} {
		_, err := ParseMemory(in)
		assert.True(t, errors.Is(err, model.ErrInvalidValue), in)
	}
}

func TestParseMemory_Overflow(t *testing.T) {
	got, err := ParseMemory("8796093022207gb")
	require.NoError(t, err)
	assert.Equal(t, int64(8796093022207*gbFactor), got)

	got, err = ParseMemory("9007199254740991mb")
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740991*mbFactor), got)

	for _, in := range []string{"8796093022208gb", "9007199254740992mb", "9223372036854775807gb"} {
		_, err := ParseMemory(in)
		assert.ErrorIs(t, err, model.ErrInvalidValue, in)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"01:30:00", 5400},
		{"00:00:45", 45},
		{"100:00:00", 360000},
		{"-1:30:00", 1800},
		{"01:-5:10", 3610},
		{"-1:-1:-1", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTime_Invalid(t *testing.T) {
	for _, in := range []string{"", "01:30", "1:2:3:4", "aa:00:00", "99999999999:00:00"} {
		_, err := ParseTime(in)
		assert.True(t, errors.Is(err, model.ErrInvalidValue), in)
	}
}

func TestParseExecHost(t *testing.T) {
	hosts, err := ParseExecHost("nodeA/0+nodeA/1+nodeB/0")
	require.NoError(t, err)
	assert.Equal(t, []HostCPU{{"nodeA", 0}, {"nodeA", 1}, {"nodeB", 0}}, hosts)

	nodes, cpus := CountExecHost(hosts)
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 3, cpus)

	// malformed parts are ignored
	hosts, err = ParseExecHost("nodeA/0+nodeB+nodeC/+nodeD/1/2")
	require.NoError(t, err)
	assert.Equal(t, []HostCPU{{"nodeA", 0}}, hosts)

	_, err = ParseExecHost("nodeA/x")
	assert.True(t, errors.Is(err, model.ErrInvalidValue))
}

func TestProperty_UnitNormalization(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("mb scales by 1024", prop.ForAll(
		func(n int64) bool {
			got, err := ParseMemory(fmt.Sprintf("%dmb", n))
			return err == nil && got == n*1024
		},
		gen.Int64Range(0, 1<<30),
	))

	properties.Property("gb scales by 1024*1024", prop.ForAll(
		func(n int64) bool {
			got, err := ParseMemory(fmt.Sprintf("%dgb", n))
			return err == nil && got == n*1024*1024
		},
		gen.Int64Range(0, 1<<20),
	))

	properties.Property("bare and kb values are unchanged", prop.ForAll(
		func(n int64) bool {
			bare, err1 := ParseMemory(fmt.Sprintf("%d", n))
			kb, err2 := ParseMemory(fmt.Sprintf("%dkb", n))
			return err1 == nil && err2 == nil && bare == n && kb == n
		},
		gen.Int64Range(0, 1<<40),
	))

	properties.Property("scaled memory is never negative", prop.ForAll(
		func(n int64, unit int) bool {
			got, err := ParseMemory(fmt.Sprintf("%d%s", n, []string{"", "b", "kb", "mb", "gb"}[unit]))
			return err != nil || got >= 0
		},
		gen.Int64Range(0, 1<<62),
		gen.IntRange(0, 4),
	))

	properties.Property("byte values collapse to 1", prop.ForAll(
		func(n int64) bool {
			got, err := ParseMemory(fmt.Sprintf("%db", n))
			return err == nil && got == 1
		},
		gen.Int64Range(0, 1<<40),
	))

	properties.Property("H:M:S sums to seconds with negatives clamped", prop.ForAll(
		func(h, m, s int) bool {
			got, err := ParseTime(fmt.Sprintf("%d:%d:%d", h, m, s))
			if err != nil {
				return false
			}
			clamp := func(v int) int64 {
				if v < 0 {
					return 0
				}
				return int64(v)
			}
			return got == clamp(h)*3600+clamp(m)*60+clamp(s)
		},
		gen.IntRange(-100, 10000),
		gen.IntRange(-100, 59),
		gen.IntRange(-100, 59),
	))

	properties.TestingRun(t)
}
