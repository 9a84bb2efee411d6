package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/odyssey-identity/internal/app"
	_ "github.com/odyssey-erp/odyssey-identity/internal/testing/guard"
)

func TestRunUsageErrors(t *testing.T) {
	cases := map[string]struct {
		args []string
		want string
	}{
		"no command":       {nil, "usage: identityctl"},
		"unknown command":  {[]string{"rotate"}, `unknown command "rotate"`},
		"jobs without sub": {[]string{"jobs"}, "usage: identityctl"},
		"unknown jobs sub": {[]string{"jobs", "purge"}, `unknown jobs command "purge"`},
		"trigger no name":  {[]string{"jobs", "trigger"}, "expected exactly one job name"},
		"bad audit flag":   {[]string{"audit", "-verbose"}, "flag provided but not defined"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args, &stdout, &stderr)
			assert.Equal(t, 2, code)
			assert.Contains(t, stderr.String(), tc.want)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "jobs trigger index-audit")
	assert.Empty(t, stderr.String())
}

func TestGuardEnablesTestMode(t *testing.T) {
	assert.True(t, app.InTestMode())
}
