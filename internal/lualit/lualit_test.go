package lualit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemark/sidecar/internal/lualit"
)

func Test_Unmarshal_Accepts_Banner_And_Return(t *testing.T) {
	t.Parallel()

	input := "-- we can read Lua syntax here!\nreturn {\n    [\"doc_path\"] = \"/books/a.pdf\",\n    [\"percent_finished\"] = 0.25,\n}\n"

	v, err := lualit.Unmarshal([]byte(input))
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok, "expected mapping, got %T", v)

	assert.Equal(t, "/books/a.pdf", m["doc_path"])
	assert.Equal(t, 0.25, m["percent_finished"])
}

func Test_Unmarshal_Scalars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"nil", "nil", nil},
		{"true", "true", true},
		{"false", "false", false},
		{"int", "42", int64(42)},
		{"negative int", "-7", int64(-7)},
		{"hex int", "0x1f", int64(31)},
		{"float", "0.5", 0.5},
		{"exponent", "1e3", 1000.0},
		{"double quoted", `"a\nb"`, "a\nb"},
		{"single quoted", `'it\'s'`, "it's"},
		{"decimal escape", `"\27[0m"`, "\x1b[0m"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			v, err := lualit.Unmarshal([]byte(testCase.input))
			require.NoError(t, err)
			assert.Equal(t, testCase.want, v)
		})
	}
}

func Test_Unmarshal_Sequences(t *testing.T) {
	t.Parallel()

	v, err := lualit.Unmarshal([]byte(`{"a", "b", "c"}`))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, v)

	// Explicit [1]..[n] keys decode as the same sequence.
	v, err = lualit.Unmarshal([]byte(`{[1] = "a", [2] = "b", [3] = "c"}`))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, v)
}

func Test_Unmarshal_Rejects_Malformed_Input(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bare return", "return"},
		{"function call", `os.execute("rm -rf /")`},
		{"unterminated table", `{["a"] = 1,`},
		{"unterminated string", `"abc`},
		{"mixed table", `{1, ["a"] = 2}`},
		{"non-sequential integer keys", `{[1] = "a", [5] = "b"}`},
		{"trailing data", `{} {}`},
		{"unexpected identifier", `yes`},
		{"operator", `1 + 2`},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := lualit.Unmarshal([]byte(testCase.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, lualit.ErrSyntax)
		})
	}
}

func Test_Marshal_Is_Deterministic_And_Round_Trips(t *testing.T) {
	t.Parallel()

	record := map[string]any{
		"doc_path":         "/books/a.pdf",
		"percent_finished": 0.25,
		"highlight":        true,
		"css":              "p { margin: 0 }\n",
		"bookmarks":        []any{"one", "two"},
		"stats": map[string]any{
			"pages": int64(320),
			"notes": map[string]any{},
		},
	}

	first, err := lualit.Marshal(record)
	require.NoError(t, err)

	second, err := lualit.Marshal(record)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "output must be deterministic")

	back, err := lualit.Unmarshal(first)
	require.NoError(t, err)
	assert.Equal(t, record, back)
}

func Test_Marshal_Rejects_Unsupported_Values(t *testing.T) {
	t.Parallel()

	_, err := lualit.Marshal(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.ErrorIs(t, err, lualit.ErrUnsupported)

	_, err = lualit.Marshal(func() {})
	require.Error(t, err)
	assert.ErrorIs(t, err, lualit.ErrUnsupported)
}
