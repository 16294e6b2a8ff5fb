package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/voucher-engine/voucher"
)

func TestParseDecisionJSON_PlainJSON(t *testing.T) {
	decisions, err := parseDecisionJSON(
		`{"titles":[{"value":"DIRETOR","exclude":true,"justification":"officer"}],"statuses":[],"reasons":[]}`)

	require.NoError(t, err)
	require.Len(t, decisions.Titles, 1)
	assert.True(t, decisions.Titles[0].Exclude)
}

func TestParseDecisionJSON_FencedCodeBlock(t *testing.T) {
	decisions, err := parseDecisionJSON("```json\n{\"titles\":[{\"value\":\"X\",\"exclude\":false,\"justification\":\"\"}]}\n```")

	require.NoError(t, err)
	require.Len(t, decisions.Titles, 1)
	assert.False(t, decisions.Titles[0].Exclude)
}

func TestParseDecisionJSON_ProseIsMalformed(t *testing.T) {
	_, err := parseDecisionJSON("Sure! Here is my analysis of the roles...")
	require.ErrorIs(t, err, voucher.ErrMalformedDecision)
}

func TestParseDecisionJSON_EmptyValueIsMalformed(t *testing.T) {
	_, err := parseDecisionJSON(`{"titles":[{"value":"","exclude":true}]}`)
	require.ErrorIs(t, err, voucher.ErrMalformedDecision)
}
