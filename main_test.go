package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonview/internal/config"
	"github.com/mcncl/jsonview/internal/errors"
	"github.com/mcncl/jsonview/internal/logging"
)

func newTestContext(stdin string) (*Context, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Context{
		Config: config.NewConfig(),
		Log:    logging.Discard(),
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout, &stderr
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParser_Commands(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
		check   func(t *testing.T, c *cli)
	}{
		{
			name:    "render is the default",
			args:    []string{"-i", "doc.json", "--fn-name", "cb", "-p"},
			command: "render",
			check: func(t *testing.T, c *cli) {
				assert.True(t, strings.HasSuffix(c.Render.Input, "doc.json"))
				assert.Equal(t, "cb", c.Render.FnName)
				assert.True(t, c.Render.Pretty)
			},
		},
		{
			name:    "line numbers",
			args:    []string{"render", "--line-numbers"},
			command: "render",
			check: func(t *testing.T, c *cli) {
				assert.True(t, c.Render.LineNumbers)
				assert.False(t, c.Render.Pretty)
			},
		},
		{
			name:    "no arguments",
			args:    []string{},
			command: "render",
		},
		{
			name:    "worker",
			args:    []string{"--debug", "worker"},
			command: "worker",
			check: func(t *testing.T, c *cli) {
				assert.True(t, c.Debug)
			},
		},
		{
			name:    "serve with overrides",
			args:    []string{"serve", "--host", "0.0.0.0", "--port", "9000"},
			command: "serve",
			check: func(t *testing.T, c *cli) {
				assert.Equal(t, "0.0.0.0", c.Serve.Host)
				assert.Equal(t, 9000, c.Serve.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c cli
			p, err := newParser(&c)
			require.NoError(t, err)

			kctx, err := p.Parse(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.command, kctx.Command())
			if tt.check != nil {
				tt.check(t, &c)
			}
		})
	}
}

func TestParser_Version(t *testing.T) {
	var c cli
	var out bytes.Buffer
	exited := false
	p, err := newParser(&c, kong.Writers(&out, &out), kong.Exit(func(int) { exited = true }))
	require.NoError(t, err)

	_, _ = p.Parse([]string{"--version"})
	assert.True(t, exited)
	assert.Contains(t, out.String(), "jsonview version "+Version)
}

func TestRender_FromStdin(t *testing.T) {
	ctx, stdout, stderr := newTestContext(`{"name": "Ada", "tags": []}`)

	err := (&RenderCmd{}).Run(ctx)
	require.NoError(t, err)

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, `<div id="json">`))
	assert.Contains(t, out, `<span class="property">name</span>: <span class="type-string">&quot;Ada&quot;</span>,`)
	assert.Contains(t, out, `[ ]`)
	assert.Empty(t, stderr.String())
}

func TestRender_FromFileWithCallback(t *testing.T) {
	path := writeTempFile(t, "doc.json", `[1, true]`)
	ctx, stdout, _ := newTestContext("")

	err := (&RenderCmd{Input: path, FnName: "cb"}).Run(ctx)
	require.NoError(t, err)

	out := strings.TrimSpace(stdout.String())
	assert.True(t, strings.HasPrefix(out, `<div class="callback-function">cb(</div>`))
	assert.True(t, strings.HasSuffix(out, `<div class="callback-function">)</div>`))
}

func TestRender_ReportsLoads(t *testing.T) {
	ctx, stdout, stderr := newTestContext(`{"src": "http://x/a.json", "type": "application/json"}`)

	err := (&RenderCmd{}).Run(ctx)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), `<div class="src" id="src-`)
	assert.Contains(t, stderr.String(), "deferred load http://x/a.json -> #src-")
}

func TestRender_ToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.html")
	ctx, stdout, stderr := newTestContext(`null`)

	err := (&RenderCmd{Output: out}).Run(ctx)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, `<div id="json"><span class="type-null">null</span></div>`+"\n", string(data))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "HTML written to "+out)
}

func TestRender_Pretty(t *testing.T) {
	ctx, stdout, _ := newTestContext(`{"a": [1, 2]}`)

	err := (&RenderCmd{Pretty: true}).Run(ctx)
	require.NoError(t, err)
	assert.Greater(t, strings.Count(stdout.String(), "\n"), 3)

	ctx, stdout, _ = newTestContext(`{"a": [1, 2]}`)
	ctx.Config.Output.Pretty = true
	require.NoError(t, (&RenderCmd{}).Run(ctx))
	assert.Greater(t, strings.Count(stdout.String(), "\n"), 3)
}

func TestRender_LineNumbers(t *testing.T) {
	tests := []struct {
		name   string
		cmd    RenderCmd
		config bool
	}{
		{name: "flag", cmd: RenderCmd{LineNumbers: true}},
		{name: "flag with pretty", cmd: RenderCmd{Pretty: true, LineNumbers: true}},
		{name: "config", config: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, stdout, _ := newTestContext(`{"a": [1, 2]}`)
			ctx.Config.Output.LineNumbers = tt.config

			require.NoError(t, tt.cmd.Run(ctx))
			lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
			require.Greater(t, len(lines), 3)
			for i, line := range lines[:3] {
				assert.True(t, strings.HasPrefix(strings.TrimSpace(line), strconv.Itoa(i+1)), line)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name     string
		cmd      RenderCmd
		stdin    string
		wantType errors.ErrorType
		wantErr  error
	}{
		{
			name:     "empty stdin",
			stdin:    "",
			wantType: errors.ErrorTypeInput,
			wantErr:  errors.ErrEmptyInput,
		},
		{
			name:     "invalid JSON",
			stdin:    `{"a": }`,
			wantType: errors.ErrorTypeParsing,
			wantErr:  errors.ErrInvalidJSON,
		},
		{
			name:     "missing file",
			cmd:      RenderCmd{Input: "/non/existent/file.json"},
			wantType: errors.ErrorTypeInput,
			wantErr:  errors.ErrFileNotFound,
		},
		{
			name:     "unwritable output",
			cmd:      RenderCmd{Output: "/non/existent/dir/out.html"},
			stdin:    `1`,
			wantType: errors.ErrorTypeOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _, _ := newTestContext(tt.stdin)
			err := tt.cmd.Run(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, &errors.AppError{Type: tt.wantType})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRender_EmptyFile(t *testing.T) {
	path := writeTempFile(t, "empty.json", "")
	ctx, _, _ := newTestContext("")

	err := (&RenderCmd{Input: path}).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFileEmpty)
}

func TestWorker_Run(t *testing.T) {
	ctx, stdout, _ := newTestContext(`{"json": "[]", "docId": 1}` + "\n" + `oops` + "\n")

	err := (&WorkerCmd{}).Run(ctx)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"onjsonToHTML": true, "docId": 1, "html": "<div id=\"json\">[ ]</div>"}`, lines[0])
	assert.JSONEq(t, `{"error": true}`, lines[1])
}

func TestServe_InvalidOverride(t *testing.T) {
	ctx, _, _ := newTestContext("")

	err := (&ServeCmd{Port: 70000}).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.AppError{Type: errors.ErrorTypeConfig})
}

func TestNewContext(t *testing.T) {
	path := writeTempFile(t, "jsonview.yml", "render:\n  root_id: page\n")

	ctx, err := newContext(path, true)
	require.NoError(t, err)
	assert.Equal(t, "page", ctx.Config.Render.RootID)
	assert.True(t, ctx.Config.Dev.Debug)

	_, err = newContext("/non/existent/jsonview.yml", false)
	require.Error(t, err)
}
