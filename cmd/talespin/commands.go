package main

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/sonirico/talespin"
)

var errUnknownCommand = errors.New("unknown command")

const commandHelp = `commands:
  ready                      mark yourself ready
  choose <card> <clue...>    storyteller: pick a card and describe it
  pick <card>                pick a card matching the clue
  vote <card>                vote for the storyteller's card
  quit                       leave`

// parseCommand turns one line typed by the player into an intent. quit is true when
// the player wants to leave; a blank line yields neither.
func parseCommand(line string) (intent talespin.Intent, quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false, nil
	}

	verb, args := strings.ToLower(fields[0]), fields[1:]
	switch verb {
	case "quit", "exit":
		return nil, true, nil
	case "ready":
		return talespin.Ready{}, false, nil
	case "choose":
		if len(args) < 2 {
			return nil, false, errors.New("usage: choose <card> <clue...>")
		}
		return talespin.ActivePlayerChooseCard{
			Card:        args[0],
			Description: strings.Join(args[1:], " "),
		}, false, nil
	case "pick":
		if len(args) != 1 {
			return nil, false, errors.New("usage: pick <card>")
		}
		return talespin.PlayerChooseCard{Card: args[0]}, false, nil
	case "vote":
		if len(args) != 1 {
			return nil, false, errors.New("usage: vote <card>")
		}
		return talespin.Vote{Card: args[0]}, false, nil
	default:
		return nil, false, errors.Wrap(errUnknownCommand, verb)
	}
}
