// Package reviewq provides a human-in-the-loop approval queue for
// AI-suggested decisions and action items.
//
// Suggestions extracted from meeting transcripts (or any other source) enter
// a review queue where a human approves, modifies or rejects each one.
// Nothing becomes actionable without that explicit decision: approved
// decisions flow to the archive, approved tasks to the task sink, and items
// that sit unreviewed past a threshold are escalated.
//
// End-users typically interact via the high-level Service façade exposed by
// the root package:
//
//	srv := reviewq.New()
//	srv.StartDispatcher(ctx)
//	items, _ := srv.ProcessTranscript(ctx, transcript, "meeting-42", attendees)
//	result, _ := srv.Workflow().ApproveDecision(ctx, workflow.ApproveDecisionRequest{
//		ItemID:     items[0].ID,
//		ApprovedBy: "alice@example.com",
//	})
//
// For more details see the individual sub-packages.
package reviewq
