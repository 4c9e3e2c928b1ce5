package info

import (
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarterdeck/internal/store"
)

func sectionText(t *testing.T, blocks []slack.Block) string {
	t.Helper()
	require.Len(t, blocks, 1)
	section, ok := blocks[0].(*slack.SectionBlock)
	require.True(t, ok, "expected a section block")
	require.Len(t, section.Fields, 1)
	return section.Fields[0].Text
}

func TestUserDataBlocks(t *testing.T) {
	snap := &store.ProfileSnapshot{
		SlackID:            "U0ASKER",
		Stage:              "ship_shape",
		VerificationStatus: "Verified",
		DoubloonsPaid:      120,
		DoubloonsBalance:   35,
		UniqueVoteCount:    9,
		VoteCount:          14,
		TotalShips:         3,
		HoursLogged:        41.5,
	}
	cases := []store.FraudCase{
		{Status: "Open"},
		{Status: "Resolved"},
		{Status: "Duplicate Case"},
		{Status: "Under Review"},
	}

	text := sectionText(t, UserDataBlocks("U0ASKER", snap, cases))

	assert.Contains(t, text, "<@U0ASKER>")
	assert.Contains(t, text, "*Stage:* Ship Shape")
	assert.Contains(t, text, "*Verification Status:* Verified")
	assert.Contains(t, text, "*Disciplinary Status:* None")
	assert.Contains(t, text, "*Open Fraud Cases:* 2/4")
	assert.Contains(t, text, "*Paid:* 120")
	assert.Contains(t, text, "*Balance:* 35")
	assert.Contains(t, text, "*Unique Votes:* 9/14")
	assert.Contains(t, text, "*Total Hours Logged:* 41.5")
}

func TestUserDataBlocksNoSnapshot(t *testing.T) {
	text := sectionText(t, UserDataBlocks("U0NEW", nil, nil))

	assert.Contains(t, text, "*Stage:* Unknown")
	assert.Contains(t, text, "*Verification Status:* Not submitted")
	assert.Contains(t, text, "*Open Fraud Cases:* 0/0")
	assert.Contains(t, text, "*Balance:* 0")
}
