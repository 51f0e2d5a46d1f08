package main

import (
	"context"
	"testing"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

// TestScripts runs testdata/script/*.txt through script's "exec" command,
// which looks surveyctl up on PATH; this test does not build the binary
// itself. This matches the ambient
// stack's choice of rsc.io/script for scripted CLI tests (no example repo
// in the corpus tests a CLI this way, so there is no teacher file to
// mirror line-for-line; this follows the library's own documented
// engine+Run shape).
func TestScripts(t *testing.T) {
	engine := &script.Engine{
		Cmds:  script.DefaultCmds(),
		Conds: script.DefaultConds(),
	}
	ctx := context.Background()
	scripttest.Run(t, ctx, engine, nil, "testdata/script/*.txt")
}
