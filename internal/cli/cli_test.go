package cli

import (
	"bytes"
	"context"
	"io/fs"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/ciskema/ci"
	"github.com/reoring/ciskema/i18n"
)

const validYAML = `
stages: [build, test]
.template:
  image: ruby
rspec:
  stage: test
  script:
    - bundle exec rspec
`

const invalidYAML = `
cache:
  key: v1
  bogus: true
rspec:
  script: rake
  artifacts:
    expire_in: 3 mos
`

// testApp returns an App reading from an in-memory file set.
func testApp(t *testing.T, files map[string]string, env map[string]string) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Cleanup(func() { i18n.SetLanguage("en") })
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &App{
		Registry: ci.Registry(),
		Out:      out,
		Err:      errOut,
		ReadFile: func(name string) ([]byte, error) {
			s, ok := files[name]
			if !ok {
				return nil, fs.ErrNotExist
			}
			return []byte(s), nil
		},
		Getenv:     func(k string) string { return env[k] },
		IsTerminal: func() bool { return false },
	}, out, errOut
}

func run(app *App, args ...string) error {
	cmd := NewRootCmd(app)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestLint_Valid(t *testing.T) {
	app, out, _ := testApp(t, map[string]string{"ci.yml": validYAML}, nil)

	require.NoError(t, run(app, "lint", "ci.yml"))
	assert.Equal(t, "ci.yml: valid\n", out.String())
}

func TestLint_InvalidText(t *testing.T) {
	app, out, _ := testApp(t, map[string]string{"ci.yml": invalidYAML, "ok.yml": validYAML}, nil)

	err := run(app, "lint", "ok.yml", "ci.yml")
	require.ErrorIs(t, err, ErrInvalid)

	text := out.String()
	assert.Contains(t, text, "ok.yml: valid")
	assert.Contains(t, text, "ci.yml: 2 issue(s)")
	assert.Contains(t, text, "Cache config contains unknown keys: bogus [UnknownKeyError /cache]")
	assert.Contains(t, text, "Expire_in config should be a duration [FormatError /rspec/artifacts/expire_in]")
	assert.NotContains(t, text, "\x1b[", "no color when not a terminal")
}

func TestLint_JSONFromEnv(t *testing.T) {
	app, out, _ := testApp(t,
		map[string]string{"ci.yml": invalidYAML},
		map[string]string{EnvFormat: "json"},
	)

	require.ErrorIs(t, run(app, "lint", "ci.yml"), ErrInvalid)

	var reports []FileReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "yaml", reports[0].Format)
	assert.False(t, reports[0].Valid)
	require.Len(t, reports[0].Issues, 2)
	assert.Equal(t, IssueReport{
		Key:      "cache",
		Path:     "/cache",
		Code:     "unknown_key",
		Category: "UnknownKeyError",
		Message:  "config contains unknown keys: bogus",
		Text:     "Cache config contains unknown keys: bogus",
	}, reports[0].Issues[0])
}

func TestLint_FlagOverridesEnv(t *testing.T) {
	app, out, _ := testApp(t,
		map[string]string{"ci.json": `{"rspec":{"script":"x"}}`},
		map[string]string{EnvFormat: "json"},
	)

	require.NoError(t, run(app, "lint", "--format", "text", "ci.json"))
	assert.Equal(t, "ci.json: valid\n", out.String())
}

func TestLint_Japanese(t *testing.T) {
	app, out, _ := testApp(t, map[string]string{"ci.yml": "{}\n"}, map[string]string{EnvLang: "ja"})

	require.ErrorIs(t, run(app, "lint", "ci.yml"), ErrInvalid)
	assert.Contains(t, out.String(), "Jobs 設定には少なくとも1つの表示ジョブが必要です")
}

func TestLint_DecodeIssues(t *testing.T) {
	dup := "rspec:\n  script: a\n  script: b\n"
	app, out, errOut := testApp(t, map[string]string{"ci.yml": dup}, nil)

	require.ErrorIs(t, run(app, "lint", "ci.yml"), ErrInvalid)
	assert.Contains(t, out.String(), "[ParseError /rspec/script]")

	out.Reset()
	require.NoError(t, run(app, "lint", "--log-level", "warn", "--allow-duplicate-keys", "ci.yml"))
	assert.Equal(t, "ci.yml: valid\n", out.String())
	assert.Contains(t, errOut.String(), "Duplicate key.")
	assert.Contains(t, errOut.String(), "run_id=")
}

func TestLint_AllowDuplicateKeysHCL(t *testing.T) {
	dup := "rspec {\n  script = [\"a\"]\n}\nrspec {\n  script = [\"b\"]\n}\n"
	app, out, errOut := testApp(t, map[string]string{"ci.hcl": dup}, nil)

	require.ErrorIs(t, run(app, "lint", "ci.hcl"), ErrInvalid)
	assert.Contains(t, out.String(), "/rspec")

	out.Reset()
	require.NoError(t, run(app, "lint", "--log-level", "warn", "--allow-duplicate-keys", "ci.hcl"))
	assert.Equal(t, "ci.hcl: valid\n", out.String())
	assert.Contains(t, errOut.String(), "Duplicate key.")
}

func TestLint_Errors(t *testing.T) {
	app, _, _ := testApp(t, map[string]string{"ci.toml": ""}, nil)

	err := run(app, "lint", "missing.yml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	err = run(app, "lint", "ci.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no driver")

	err = run(app, "lint", "--format", "xml", "ci.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of text|json")

	require.Error(t, run(app, "lint"))
}

func TestValue(t *testing.T) {
	app, out, _ := testApp(t, map[string]string{"ci.yml": validYAML}, nil)

	require.NoError(t, run(app, "value", "ci.yml", "jobs.rspec.script"))
	assert.Equal(t, "\"bundle exec rspec\"\n", out.String())

	out.Reset()
	require.NoError(t, run(app, "value", "ci.yml", "stages"))
	assert.JSONEq(t, `["build","test"]`, out.String())

	out.Reset()
	require.NoError(t, run(app, "value", "--specified", "ci.yml", "jobs.rspec.when"))
	assert.Equal(t, "false\n", out.String())

	out.Reset()
	require.NoError(t, run(app, "value", "--specified", "ci.yml", "jobs..template"))
	assert.Equal(t, "true\n", out.String())

	err := run(app, "value", "ci.yml", "jobs.deploy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no value at "jobs.deploy"`)

	out.Reset()
	require.NoError(t, run(app, "value", "ci.yml"))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Contains(t, doc, "jobs")
	assert.NotContains(t, doc, "types")
}

func TestSchema(t *testing.T) {
	app, out, _ := testApp(t, nil, nil)

	require.NoError(t, run(app, "schema"))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "https://json-schema.org/draft/2020-12/schema", doc["$schema"])
	assert.Equal(t, "global", doc["title"])
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "stages")
}

func TestSplitPath(t *testing.T) {
	cases := map[string][]string{
		"":                  nil,
		".":                 nil,
		"stages":            {"stages"},
		"jobs.rspec.script": {"jobs", "rspec", "script"},
		"jobs..template":    {"jobs", ".template"},
		".jobs.rspec":       {"jobs", "rspec"},
		"jobs.rspec.":       {"jobs", "rspec"},
	}
	for in, want := range cases {
		assert.Equal(t, want, SplitPath(in), "SplitPath(%q)", in)
	}
}

func TestEnumValue(t *testing.T) {
	v := newEnumValue("JSON", "text", "json")
	assert.Equal(t, "json", v.String())

	v = newEnumValue("bogus", "text", "json")
	assert.Equal(t, "text", v.String(), "invalid defaults fall back to the first choice")

	require.NoError(t, v.Set(" Json "))
	assert.Equal(t, "json", v.String())
	assert.Error(t, v.Set("xml"))
	assert.True(t, strings.HasPrefix(v.choices(), "text|"))
}
