package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

const fullScenario = `name: nightly
vars:
  OUT_DIR: /tmp/out
db:
  ora:
    kind: oracle
    dsn: ORCL
    user: scott
    password: "${ORA_PASS}"
steps:
  - id: truncate
    kind: sql
    sql: TRUNCATE TABLE staging
    target_db: ora
    retry: 2
    timeout_sec: 30
    confirm:
      before: true
      message_before: "Truncate staging?"
      default_answer: no
  - id: fetch
    kind: shell
    depends_on: [truncate]
    allow_parallel: true
    shell:
      script: ./fetch.sh
      env: {MODE: full}
      error_policy: {type: retry, max_retries: 2, delay_secs: 1}
  - id: load
    kind: sql_loader_par
    depends_on: [fetch]
    sqlldr:
      control_file: load.ctl
      data_file: "${OUT_DIR}/in.dat"
  - id: batch
    kind: extract
    depends_on: [load]
    extract:
      file_path: load.log
      line: 3
      pattern: 'Rows loaded: (\d+)'
      group: 1
      var_name: ROWS
  - id: each
    kind: loop
    depends_on: [batch]
    loop:
      for_each_glob: "${OUT_DIR}/*.csv"
      as_var: FILE
      steps:
        - id: archive
          kind: shell
          shell:
            script: mv "${FILE}" archive/
            error_policy: ignore
        - id: post
          kind: sql_file
          depends_on: [archive]
          sql_file: post.sql
`

func TestToScenarioConvertsEveryKind(t *testing.T) {
	doc, err := ParseDocumentBytes("full.yaml", []byte(fullScenario))
	require.NoError(t, err)

	s, err := doc.ToScenario()
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, "nightly", s.Name)
	assert.Equal(t, map[string]string{"OUT_DIR": "/tmp/out"}, s.Vars)
	assert.Equal(t, scenario.DbConnectionConfig{Kind: scenario.DbKindOracle, DSN: "ORCL", User: "scott", Password: "${ORA_PASS}"}, s.DBConnections["ora"])
	require.Len(t, s.Steps, 5)

	truncate := s.Steps[0]
	assert.Equal(t, scenario.SQL{SQL: "TRUNCATE TABLE staging", TargetDB: "ora"}, truncate.Kind)
	assert.Equal(t, 2, truncate.Retry)
	assert.Equal(t, 30, truncate.TimeoutSeconds)
	require.NotNil(t, truncate.Confirm)
	assert.True(t, truncate.Confirm.Enabled(scenario.PhaseBefore))
	assert.Equal(t, scenario.AnswerNo, truncate.Confirm.Default())

	fetch, ok := s.Steps[1].Kind.(scenario.Shell)
	require.True(t, ok)
	assert.True(t, s.Steps[1].AllowParallel)
	assert.Equal(t, scenario.RetryPolicy(2, 1), fetch.ErrorPolicy)
	assert.Equal(t, "full", fetch.Env["MODE"])

	load, ok := s.Steps[2].Kind.(scenario.SQLLoader)
	require.True(t, ok)
	assert.Equal(t, "${OUT_DIR}/in.dat", load.DataFile)

	extract, ok := s.Steps[3].Kind.(scenario.ExtractVar)
	require.True(t, ok)
	assert.Equal(t, 3, extract.LineNumber)
	assert.Equal(t, "ROWS", extract.VarName)

	loop, ok := s.Steps[4].Kind.(scenario.Loop)
	require.True(t, ok)
	assert.Equal(t, scenario.IterationStopAll, loop.IterationFailurePolicy)
	require.Len(t, loop.Steps, 2)
	assert.Equal(t, scenario.IgnorePolicy(), loop.Steps[0].Kind.(scenario.Shell).ErrorPolicy)
	assert.Equal(t, scenario.SQLFile{Path: "post.sql"}, loop.Steps[1].Kind)
	assert.Equal(t, []string{"archive"}, loop.Steps[1].DependsOn)
}

func TestToScenarioMissingBlock(t *testing.T) {
	doc := &Document{Name: "s", Steps: []Step{{ID: "x", Kind: KindShell}}}
	_, err := doc.ToScenario()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step "x" has no shell configuration`)
}
