package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/jailrun/sandbox"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name     string
		expected Kind
		hasError bool
	}{
		{"netns", NetworkNamespaceOnly, false},
		{"freebsd", FreeBSDBase, false},
		{"linux", LinuxBase, false},
		{"FreeBSD", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := ParseKind(tt.name)
			if tt.hasError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "netns, freebsd, linux")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, kind)
				assert.Equal(t, tt.name, kind.String())
			}
		})
	}
}

func TestSpecParameters(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			spec := NewSpec(kind, Definition{RootPath: "/jails/" + kind.String(), Hostname: kind.String()})
			assert.Nil(t, spec.Params)

			params, err := spec.Parameters()
			require.NoError(t, err)

			path, ok := params.Path()
			require.True(t, ok)
			assert.Equal(t, "/jails/"+kind.String(), path)

			hostname, _ := params.Get(sandbox.ParamHostname)
			assert.Equal(t, sandbox.Text(kind.String()), hostname)

			childrenMax, _ := params.Get(sandbox.ParamChildrenMax)
			assert.Equal(t, sandbox.Integer(99), childrenMax)
			assert.True(t, params.Has(sandbox.ParamPersist))

			_, err = sandbox.Marshal(params)
			require.NoError(t, err)
		})
	}

	t.Run("LinuxHasNoVNet", func(t *testing.T) {
		params, err := NewSpec(LinuxBase, Definition{RootPath: "/"}).Parameters()
		require.NoError(t, err)
		assert.False(t, params.Has(sandbox.ParamVNet))
		assert.True(t, params.Has("allow.mount.linprocfs"))
	})

	t.Run("UnknownKind", func(t *testing.T) {
		_, err := NewSpec(Kind(42), Definition{RootPath: "/"}).Parameters()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kind(42)")
	})
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "mkdir", StageMkdir.String())
	assert.Equal(t, "download", StageDownload.String())
	assert.Equal(t, "extract", StageExtract.String())
	assert.Equal(t, "cleanup", StageCleanup.String())
	assert.Equal(t, "create", StageCreate.String())
}
