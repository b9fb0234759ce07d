package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decodeStep(t *testing.T, src string) Step {
	t.Helper()
	var step Step
	require.NoError(t, yaml.Unmarshal([]byte(src), &step))
	return step
}

func TestStepDecodesKindBlocks(t *testing.T) {
	sql := decodeStep(t, "id: q\nkind: sql\nsql: SELECT 1\ntarget_db: dw\nretry: 2\ntimeout_sec: 5\nallow_parallel: true\n")
	require.NotNil(t, sql.SQL)
	assert.Equal(t, "dw", sql.SQL.TargetDB)
	assert.Equal(t, 2, sql.Retry)
	assert.Equal(t, 5, sql.TimeoutSec)
	assert.True(t, sql.AllowParallel)
	assert.Nil(t, sql.Shell)

	file := decodeStep(t, "id: f\nkind: sql_file\nsql_file: ./load.sql\n")
	require.NotNil(t, file.SQLFile)
	assert.Equal(t, "./load.sql", file.SQLFile.Path)

	loader := decodeStep(t, "id: l\nkind: sql_loader_par\nsqlldr:\n  control_file: a.ctl\n  data_file: a.dat\n  conn: u/p@db\n")
	require.NotNil(t, loader.SQLLoader)
	assert.Equal(t, "a.dat", loader.SQLLoader.DataFile)
	assert.Equal(t, "u/p@db", loader.SQLLoader.Conn)

	extract := decodeStep(t, "id: e\nkind: extract\nextract:\n  file_path: r.txt\n  line: 2\n  pattern: 'id=(\\d+)'\n  group: 1\n  var_name: BATCH_ID\n")
	assert.Equal(t, KindExtract, extract.Kind)
	require.NotNil(t, extract.Extract)
	assert.Equal(t, 2, extract.Extract.Line)
	assert.Equal(t, `id=(\d+)`, extract.Extract.Pattern)

	loop := decodeStep(t, "id: each\nkind: loop\nloop:\n  for_each_glob: '*.csv'\n  as_var: FILE\n  steps:\n    - id: inner\n      kind: shell\n      shell: {script: 'wc -l $FILE'}\n")
	require.NotNil(t, loop.Loop)
	require.Len(t, loop.Loop.Steps, 1)
	require.NotNil(t, loop.Loop.Steps[0].Shell)
}

func TestStepDefaultsTimeout(t *testing.T) {
	step := decodeStep(t, "id: q\nkind: sql\nsql: SELECT 1\n")
	assert.Equal(t, 60, step.TimeoutSec)
	assert.Zero(t, step.Retry)
}

func TestShellErrorPolicyForms(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want ShellErrorPolicy
	}{
		{"omitted", "script: x\n", ShellErrorPolicy{}},
		{"fail", "script: x\nerror_policy: fail\n", ShellErrorPolicy{Type: "fail"}},
		{"ignore", "script: x\nerror_policy: ignore\n", ShellErrorPolicy{Type: "ignore"}},
		{"bare retry", "script: x\nerror_policy: retry\n", ShellErrorPolicy{Type: "retry", MaxRetries: 3, DelaySecs: 5}},
		{"detailed retry", "script: x\nerror_policy: {type: retry, max_retries: 2, delay_secs: 0}\n", ShellErrorPolicy{Type: "retry", MaxRetries: 2, DelaySecs: 0}},
		{"partial retry", "script: x\nerror_policy: {type: retry, max_retries: 1}\n", ShellErrorPolicy{Type: "retry", MaxRetries: 1, DelaySecs: 5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var shell ShellStep
			require.NoError(t, yaml.Unmarshal([]byte(tc.src), &shell))
			assert.Equal(t, tc.want, shell.ErrorPolicy)
		})
	}
}

func TestShellErrorPolicyRejectsUnknown(t *testing.T) {
	var shell ShellStep
	err := yaml.Unmarshal([]byte("script: x\nerror_policy: explode\n"), &shell)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown shell error policy "explode"`)
}

func TestShellCommandAlias(t *testing.T) {
	var shell ShellStep
	require.NoError(t, yaml.Unmarshal([]byte("command: echo hi\nshell_program: bash\nshell_args: [a, b]\n"), &shell))
	assert.Equal(t, "echo hi", shell.Script)
	assert.Equal(t, "bash", shell.Program)
	assert.Equal(t, []string{"a", "b"}, shell.Args)
}
