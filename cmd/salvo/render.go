package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/freeeve/salvo/internal/match"
	"github.com/freeeve/salvo/pkg/fleet"
)

// render prints the target grid and a status line whenever the view changes.
func render(ctx context.Context, sess *match.Session) {
	updates := sess.Watch()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			return
		case <-updates:
			v := sess.View()
			fmt.Print(drawTargets(&v))
			fmt.Println(status(&v))
		}
	}
}

func drawTargets(v *match.View) string {
	marks := make(map[fleet.Cell]byte)
	for _, r := range v.Self.Misses {
		marks[r.Cell] = 'o'
	}
	for _, r := range v.Self.Hits {
		marks[r.Cell] = 'X'
	}
	for _, c := range v.Self.Sunk {
		marks[c] = '#'
	}

	var b strings.Builder
	b.WriteString("   ")
	for col := 1; col <= fleet.GridSize; col++ {
		fmt.Fprintf(&b, "%-3d", col)
	}
	b.WriteByte('\n')
	for row := range fleet.GridSize {
		fmt.Fprintf(&b, "%c  ", 'A'+rune(row))
		for col := range fleet.GridSize {
			m, ok := marks[fleet.Cell{Row: row, Col: col}]
			if !ok {
				m = '.'
			}
			b.WriteByte(m)
			b.WriteString("  ")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func status(v *match.View) string {
	var s string
	switch {
	case v.Ended && v.Won:
		s = "You won!"
	case v.Ended:
		s = "Match over. You lost."
	case v.SelfSlot == 0:
		s = "Waiting to learn which player you are"
	case !v.Self.BoardSubmitted || !v.Opponent.BoardSubmitted:
		s = "Waiting for boards"
	case v.Pending != nil:
		s = "Firing at " + v.Pending.String() + "..."
	case v.MyTurn:
		s = "Your turn"
	default:
		s = "Opponent's turn"
	}
	if v.Feedback != nil {
		s += " | " + v.Feedback.Text
	}
	if v.LastError != "" {
		s += " | error: " + v.LastError
	}
	return s
}
