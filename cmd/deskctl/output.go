package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/h1v3-io/inbox/internal/view"
	"github.com/h1v3-io/inbox/pkg/protocol"
)

// printTicketPage writes the counts header, one row per ticket and the
// pagination strip.
func printTicketPage(w io.Writer, counts protocol.StatusCounts, p view.Page, ls view.ListState, now time.Time) {
	var tabs []string
	for _, s := range protocol.Statuses {
		label := fmt.Sprintf("%s (%d)", view.StatusLabel(s), counts.Get(s))
		if s == ls.Status {
			label = "[" + label + "]"
		}
		tabs = append(tabs, label)
	}
	fmt.Fprintln(w, strings.Join(tabs, "  "))
	fmt.Fprintln(w)

	if len(p.Items) == 0 {
		if ls.Query != "" {
			fmt.Fprintf(w, "No %s tickets match %q\n", ls.Status, ls.Query)
		} else {
			fmt.Fprintf(w, "No %s tickets\n", ls.Status)
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range p.Items {
		fmt.Fprintf(tw, "%s\t#%s\t%s\t%s\t%s\n",
			view.Initials(t.CustomerName), t.ID, t.CustomerName, t.Subject, view.RelativeTime(t.Timestamp, now))
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Page %s  (%d tickets, %d per page)\n", pageStrip(p), p.Matching, p.PageSize)
}

// pageStrip renders PageNumbers with the current page bracketed.
func pageStrip(p view.Page) string {
	var parts []string
	for _, n := range view.PageNumbers(p.Page, p.TotalPages, 3) {
		switch n {
		case view.Ellipsis:
			parts = append(parts, "...")
		case p.Page:
			parts = append(parts, "["+strconv.Itoa(n)+"]")
		default:
			parts = append(parts, strconv.Itoa(n))
		}
	}
	return strings.Join(parts, " ")
}

// printConversation writes the ticket header followed by its messages
// bucketed by group key.
func printConversation(w io.Writer, t protocol.Ticket, groups []view.Group) {
	fmt.Fprintf(w, "#%s %s\n", t.ID, t.Subject)
	fmt.Fprintf(w, "%s · %s\n", t.CustomerName, view.StatusLabel(t.Status))

	if len(groups) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, g := range groups {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "-- %s --\n", g.Key)
		for _, m := range g.Messages {
			who := t.CustomerName
			if m.Sender == protocol.SenderAgent {
				who = "Agent"
			}
			fmt.Fprintf(w, "%s: %s\n", who, m.Body)
		}
	}
}
