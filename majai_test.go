package majai

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
)

// testConfig compiles testdata/hello/Main against the runtime classes in testdata/runtime.
var testConfig = NewCompilerConfig().
	WithClassPath("testdata/runtime", "testdata/hello").
	WithEntryClass("Main").
	WithPrologue([]byte("# prologue\n"))

func TestCompile(t *testing.T) {
	var out bytes.Buffer
	p, err := Compile(context.Background(), testConfig, &out)
	require.NoError(t, err)

	text := out.String()
	require.True(t, strings.HasPrefix(text, "# prologue\n"), text)
	for _, expected := range []string{
		"// class java.lang.Object\n",
		"// class Main\n",
		"Main_main__I:\n",
		"\tli t0, 2\n",
		"\tli t0, 3\n",
		"\tadd t0, t0, t1\n",
		"staticFields:\n",
		"\t.fill 1, 4, 0\n",
		".set Main_vtable, ",
		"dynamicHeap:\n",
	} {
		require.Contains(t, text, expected)
	}
	require.True(t, strings.HasSuffix(text, "dynamicHeap:\n"), text)

	require.Equal(t, []string{"java.lang.Object", "java.lang.Array", "java.lang.String", "Main"}, p.ClassNames())
}

func TestCompile_dottedEntry(t *testing.T) {
	_, err := Compile(context.Background(), testConfig.WithEntryClass("java.lang.String"), &bytes.Buffer{})
	require.NoError(t, err)
}

func TestProgram_WriteLayout(t *testing.T) {
	p, err := Compile(context.Background(), testConfig, &bytes.Buffer{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, p.WriteLayout(&out))

	var decoded struct {
		StaticWords     int `toml:"static_words"`
		ArrayHeaderSize int `toml:"array_header_size"`
		Classes         []struct {
			Name   string `toml:"name"`
			Size   int    `toml:"size"`
			Fields []struct {
				Name   string `toml:"name"`
				Offset int    `toml:"offset"`
				Static bool   `toml:"static"`
			} `toml:"field"`
		} `toml:"class"`
	}
	_, err = toml.Decode(out.String(), &decoded)
	require.NoError(t, err, out.String())

	require.Equal(t, 1, decoded.StaticWords)
	require.Equal(t, 8, decoded.ArrayHeaderSize)
	require.Equal(t, 4, len(decoded.Classes))
	main := decoded.Classes[3]
	require.Equal(t, "Main", main.Name)
	require.Equal(t, 4, main.Size)
	require.Equal(t, 1, len(main.Fields))
	require.Equal(t, "counter", main.Fields[0].Name)
	require.True(t, main.Fields[0].Static)
	require.Equal(t, 0, main.Fields[0].Offset)
}

func TestCompile_Errors(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name        string
		ctx         context.Context
		config      *CompilerConfig
		expectedErr string
		kind        error
	}{
		{
			name:        "canceled",
			ctx:         canceled,
			config:      testConfig,
			expectedErr: "context canceled",
		},
		{
			name:        "no entry class",
			ctx:         context.Background(),
			config:      testConfig.WithEntryClass(""),
			expectedErr: "entry class not set",
		},
		{
			name:        "missing prologue",
			ctx:         context.Background(),
			config:      testConfig.WithPrologueFile("testdata/missing.S"),
			expectedErr: "reading prologue",
		},
		{
			name:        "missing entry class",
			ctx:         context.Background(),
			config:      testConfig.WithEntryClass("com.example.Missing"),
			expectedErr: "class not found: com.example.Missing",
			kind:        ErrResolution,
		},
		{
			name:        "missing runtime",
			ctx:         context.Background(),
			config:      testConfig.WithClassPath("testdata/hello"),
			expectedErr: "class not found: java.lang.Object",
			kind:        ErrResolution,
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			p, err := Compile(tc.ctx, tc.config, &bytes.Buffer{})
			require.Nil(t, p)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.expectedErr)
			if tc.kind != nil {
				require.ErrorIs(t, err, tc.kind)
			}
		})
	}
}
