// Package info builds the read-only user-summary block posted into a staff
// thread when a new help request arrives. Pure presentation over record-store
// data; no lifecycle decisions happen here.
package info

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/quarterdeck/internal/store"
)

// Defaults shown when a user has no profile snapshot on record.
const (
	unknownStage        = "Unknown"
	unknownVerification = "Not submitted"
	noDisciplinary      = "None"
)

// UserDataBlocks renders the user-data summary for a Slack user. snap may be
// nil when the user has no snapshot on record.
func UserDataBlocks(slackID string, snap *store.ProfileSnapshot, cases []store.FraudCase) []slack.Block {
	stage := unknownStage
	verification := unknownVerification
	disciplinary := noDisciplinary
	var s store.ProfileSnapshot
	if snap != nil {
		s = *snap
		if s.Stage != "" {
			stage = titleCase(strings.ReplaceAll(s.Stage, "_", " "))
		}
		if s.VerificationStatus != "" {
			verification = s.VerificationStatus
		}
		if s.DisciplinaryStatus != "" {
			disciplinary = s.DisciplinaryStatus
		}
	}

	open := 0
	for _, c := range cases {
		if c.Open() {
			open++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*:face_with_monocle: User Data for <@%s>:*\n", slackID)
	fmt.Fprintf(&b, "*Stage:* %s\n", stage)
	fmt.Fprintf(&b, "*Verification Status:* %s\n", verification)
	fmt.Fprintf(&b, "*Disciplinary Status:* %s\n", disciplinary)
	fmt.Fprintf(&b, "*Open Fraud Cases:* %d/%d\n", open, len(cases))
	b.WriteString("\n*:doubloon: Doubloons:*\n")
	fmt.Fprintf(&b, "*Paid:* %d\n", s.DoubloonsPaid)
	fmt.Fprintf(&b, "*Spent:* %d\n", s.DoubloonsSpent)
	fmt.Fprintf(&b, "*Granted:* %d\n", s.DoubloonsGranted)
	fmt.Fprintf(&b, "*Balance:* %d\n", s.DoubloonsBalance)
	b.WriteString("\n*:ship: Shippy Stats:*\n")
	fmt.Fprintf(&b, "*Unique Votes:* %d/%d\n", s.UniqueVoteCount, s.VoteCount)
	fmt.Fprintf(&b, "*Total Ships:* %d\n", s.TotalShips)
	fmt.Fprintf(&b, "*Ordered Free Stickers:* %t\n", s.HasOrderedFreeStickers)
	fmt.Fprintf(&b, "*Total Hours Logged:* %g", s.HoursLogged)

	field := slack.NewTextBlockObject(slack.MarkdownType, b.String(), false, false)
	return []slack.Block{
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{field}, nil),
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
