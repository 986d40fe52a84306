package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sonirico/talespin"
)

// describe renders an event as one or more human readable lines for player me.
func describe(ev talespin.Event, me string) string {
	switch e := ev.(type) {
	case talespin.RoomState:
		return describeRoom(e, me)
	case talespin.StartRound:
		return "your hand: " + strings.Join(e.Hand, ", ") + "\nyou are the storyteller: choose <card> <clue>"
	case talespin.PlayersChoose:
		return fmt.Sprintf("clue: %q\nyour hand: %s\npick <card>", e.Description, strings.Join(e.Hand, ", "))
	case talespin.BeginVoting:
		return fmt.Sprintf("clue: %q\non the table: %s\nvote <card>", e.Description, strings.Join(e.CenterCards, ", "))
	case talespin.Results:
		return describeResults(e)
	case talespin.ErrorMsg:
		return "server: " + e.Message
	case talespin.InvalidRoomId:
		return "that room does not exist"
	default:
		return fmt.Sprintf("%s event", ev.Kind())
	}
}

func describeRoom(r talespin.RoomState, me string) string {
	names := r.PlayerOrder
	if len(names) == 0 {
		names = make([]string, 0, len(r.Players))
		for name := range r.Players {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	players := make([]string, 0, len(names))
	for _, name := range names {
		p, ok := r.Players[name]
		if !ok {
			continue
		}
		var tags []string
		if r.IsActive(name) {
			tags = append(tags, "storyteller")
		}
		if p.Ready {
			tags = append(tags, "ready")
		}
		if !p.Active {
			tags = append(tags, "away")
		}
		label := fmt.Sprintf("%s %d", name, p.Points)
		if name == me {
			label = "*" + label
		}
		if len(tags) > 0 {
			label += " (" + strings.Join(tags, ", ") + ")"
		}
		players = append(players, label)
	}

	head := fmt.Sprintf("room %s, stage %s", r.RoomID, r.Stage)
	if r.Round != nil {
		head += fmt.Sprintf(", round %d", *r.Round)
	}
	return head + "\nplayers: " + strings.Join(players, "; ")
}

func describeResults(r talespin.Results) string {
	voters := make([]string, 0, len(r.PlayerToVote))
	for name := range r.PlayerToVote {
		voters = append(voters, name)
	}
	sort.Strings(voters)

	votes := make([]string, 0, len(voters))
	for _, name := range voters {
		votes = append(votes, fmt.Sprintf("%s -> %s", name, r.PlayerToVote[name]))
	}

	scorers := make([]string, 0, len(r.PointChange))
	for name := range r.PointChange {
		scorers = append(scorers, name)
	}
	sort.Strings(scorers)

	points := make([]string, 0, len(scorers))
	for _, name := range scorers {
		points = append(points, fmt.Sprintf("%s %+d", name, r.PointChange[name]))
	}

	out := "storyteller's card: " + r.ActiveCard + "\nvotes: " + strings.Join(votes, ", ")
	if len(points) > 0 {
		out += "\npoints: " + strings.Join(points, ", ")
	}
	return out
}
